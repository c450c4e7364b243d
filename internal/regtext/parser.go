package regtext

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/regrescue/pkg/types"
)

var (
	// ErrKeyNotFound is returned when the document has no matching section.
	ErrKeyNotFound = errors.New("regtext: key not found")
	// ErrValueNotFound is returned when the section lacks the requested value.
	ErrValueNotFound = errors.New("regtext: value not found")
	// ErrDeletedValue is returned for "name"=- deletion markers.
	ErrDeletedValue = errors.New("regtext: value is marked for deletion")
)

// FindValue locates name under the [keyPath] section and decodes its payload.
// The default value is addressed with an empty name or "@".
func FindValue(text, keyPath, name string) (types.Value, error) {
	if name == DefaultValueName {
		name = ""
	}
	lines := splitDocument(text).lines
	inKey, sawKey := false, false
	for i := 0; i < len(lines); {
		if path, deleted, ok := sectionPath(lines[i]); ok {
			inKey = !deleted && keyMatches(path, keyPath)
			sawKey = sawKey || inKey
			i++
			continue
		}
		n, at, ok := valueLine(lines[i])
		if !ok {
			i++
			continue
		}
		end := blockEnd(lines, i)
		if inKey && strings.EqualFold(n, name) {
			payload := lines[i][at:]
			for _, cont := range lines[i+1 : end] {
				payload += cont
			}
			v, err := parsePayload(payload)
			if err != nil {
				return types.Value{}, fmt.Errorf("%s\\%s: %w", keyPath, n, err)
			}
			v.Name = n
			return v, nil
		}
		i = end
	}
	if !sawKey {
		return types.Value{}, fmt.Errorf("%w: %s", ErrKeyNotFound, keyPath)
	}
	return types.Value{}, fmt.Errorf("%w: %s under %s", ErrValueNotFound, name, keyPath)
}

// parsePayload decodes the text after "name"= into a typed value.
func parsePayload(payload string) (types.Value, error) {
	payload = strings.TrimSpace(payload)
	switch {
	case payload == DeleteValueToken:
		return types.Value{}, ErrDeletedValue
	case strings.HasPrefix(payload, Quote):
		end := findClosingQuote(payload)
		if end != len(payload)-1 {
			return types.Value{}, fmt.Errorf("regtext: unterminated string %q", payload)
		}
		s := unescapeRegString(payload[1:end])
		return types.Value{Type: types.REG_SZ, Data: types.EncodeUTF16Z(s)}, nil
	case strings.HasPrefix(payload, DWORDPrefix):
		digits := payload[len(DWORDPrefix):]
		if len(digits) != DWORDHexLength {
			return types.Value{}, fmt.Errorf("regtext: invalid dword %q", payload)
		}
		n, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return types.Value{}, fmt.Errorf("regtext: invalid dword %q: %w", payload, err)
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(n))
		return types.Value{Type: types.REG_DWORD, Data: data}, nil
	case strings.HasPrefix(payload, HexPrefix), strings.HasPrefix(payload, HexTypedPrefix):
		typ := types.REG_BINARY
		if strings.HasPrefix(payload, HexTypedPrefix) {
			closeAt := strings.Index(payload, ")")
			if closeAt < 0 {
				return types.Value{}, fmt.Errorf("regtext: malformed hex type in %q", payload)
			}
			n, err := strconv.ParseUint(payload[len(HexTypedPrefix):closeAt], 16, 32)
			if err != nil {
				return types.Value{}, fmt.Errorf("regtext: malformed hex type in %q: %w", payload, err)
			}
			typ = types.RegType(n)
		}
		data, err := parseHexBytes(payload)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: typ, Data: data}, nil
	}
	return types.Value{}, fmt.Errorf("regtext: unsupported value %q", payload)
}
