//go:build windows

package winenv

import (
	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// IsAdmin reports whether the process token is elevated.
func IsAdmin() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Supported reports whether the OS-bound calls work here.
func Supported() bool { return true }

// EnableHivePrivileges enables SeBackupPrivilege and SeRestorePrivilege on
// the process token. reg load requires both even for elevated callers.
func EnableHivePrivileges() error {
	return winio.EnableProcessPrivileges([]string{winio.SeBackupPrivilege, winio.SeRestorePrivilege})
}

func tokenSID() (string, error) {
	u, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return "", err
	}
	return u.User.Sid.String(), nil
}

func tokenUserName() (string, error) {
	u, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return "", err
	}
	account, _, _, err := u.User.Sid.LookupAccount("")
	if err != nil {
		return "", err
	}
	return account, nil
}
