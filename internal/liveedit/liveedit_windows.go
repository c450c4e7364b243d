//go:build windows

package liveedit

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"github.com/joshuapare/regrescue/pkg/types"
)

func predefined(root Root) (registry.Key, error) {
	switch root {
	case CurrentUser:
		return registry.CURRENT_USER, nil
	case Users:
		return registry.USERS, nil
	default:
		return 0, fmt.Errorf("liveedit: unknown root %s", root)
	}
}

func readValue(root Root, path, name string) (types.Value, error) {
	base, err := predefined(root)
	if err != nil {
		return types.Value{}, err
	}
	k, err := registry.OpenKey(base, path, registry.QUERY_VALUE)
	if err != nil {
		return types.Value{}, wrap(root, path, err)
	}
	defer k.Close()

	n, typ, err := k.GetValue(name, nil)
	if err != nil {
		return types.Value{}, wrap(root, path+`\`+name, err)
	}
	buf := make([]byte, n)
	if n > 0 {
		if n, _, err = k.GetValue(name, buf); err != nil {
			return types.Value{}, wrap(root, path+`\`+name, err)
		}
		buf = buf[:n]
	}
	return types.Value{Name: name, Type: types.RegType(typ), Data: buf}, nil
}

func writeValue(root Root, path string, v types.Value) error {
	base, err := predefined(root)
	if err != nil {
		return err
	}
	k, _, err := registry.CreateKey(base, path, registry.SET_VALUE)
	if err != nil {
		return wrap(root, path, err)
	}
	defer k.Close()

	switch v.Type {
	case types.REG_BINARY:
		err = k.SetBinaryValue(v.Name, v.Data)
	case types.REG_DWORD:
		var d uint32
		if d, err = v.DWORD(); err == nil {
			err = k.SetDWordValue(v.Name, d)
		}
	case types.REG_QWORD:
		var q uint64
		if q, err = v.QWORD(); err == nil {
			err = k.SetQWordValue(v.Name, q)
		}
	case types.REG_SZ, types.REG_EXPAND_SZ:
		var s string
		if s, err = v.Text(); err == nil {
			if v.Type == types.REG_SZ {
				err = k.SetStringValue(v.Name, s)
			} else {
				err = k.SetExpandStringValue(v.Name, s)
			}
		}
	case types.REG_MULTI_SZ:
		var ss []string
		if ss, err = v.Strings(); err == nil {
			err = k.SetStringsValue(v.Name, ss)
		}
	default:
		err = fmt.Errorf("%w: %s", types.ErrWrongType, v.Type)
	}
	if err != nil {
		return fmt.Errorf("liveedit: write %s\\%s\\%s: %w", root, path, v.Name, err)
	}
	return nil
}

func wrap(root Root, path string, err error) error {
	if errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("%w: %s\\%s", ErrNotFound, root, path)
	}
	return fmt.Errorf("liveedit: %s\\%s: %w", root, path, err)
}
