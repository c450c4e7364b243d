//go:build !windows

package liveedit

import "github.com/joshuapare/regrescue/pkg/types"

func readValue(Root, string, string) (types.Value, error) {
	return types.Value{}, ErrUnsupported
}

func writeValue(Root, string, types.Value) error { return ErrUnsupported }
