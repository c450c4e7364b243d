// Package liveedit reads and writes values in the live registry. It is used to
// confirm a value exists under a mounted snapshot hive and, with --direct, to
// write the recovered value into HKCU without a .reg round trip.
package liveedit

import (
	"errors"
	"fmt"

	"github.com/joshuapare/regrescue/pkg/types"
)

var (
	// ErrUnsupported is returned off Windows.
	ErrUnsupported = errors.New("liveedit: not supported on this platform")
	// ErrNotFound reports a missing key or value.
	ErrNotFound = errors.New("liveedit: not found")
)

// Root selects the predefined key a path is relative to.
type Root int

const (
	CurrentUser Root = iota
	Users
)

func (r Root) String() string {
	switch r {
	case CurrentUser:
		return "HKCU"
	case Users:
		return "HKU"
	default:
		return fmt.Sprintf("root(%d)", int(r))
	}
}

// Registry is the live registry. The zero value is ready to use.
type Registry struct{}

// HasValue reports whether name exists under root\path. A missing key is not
// an error.
func (Registry) HasValue(root Root, path, name string) (bool, error) {
	_, err := readValue(root, path, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ReadValue returns the named value with its type.
func (Registry) ReadValue(root Root, path, name string) (types.Value, error) {
	return readValue(root, path, name)
}

// WriteValue creates root\path if needed and stores v with its type.
func (Registry) WriteValue(root Root, path string, v types.Value) error {
	return writeValue(root, path, v)
}
