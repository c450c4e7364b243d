//go:build !windows

package winenv

// IsAdmin is always false off Windows.
func IsAdmin() bool { return false }

// Supported reports whether the OS-bound calls work here.
func Supported() bool { return false }

// EnableHivePrivileges returns ErrUnsupported.
func EnableHivePrivileges() error { return ErrUnsupported }

func tokenSID() (string, error) { return "", ErrUnsupported }

func tokenUserName() (string, error) { return "", ErrUnsupported }
