package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
)

// RegType enumerates Windows registry value types.
type RegType uint32

const (
	REG_NONE                       RegType = 0
	REG_SZ                         RegType = 1
	REG_EXPAND_SZ                  RegType = 2
	REG_BINARY                     RegType = 3
	REG_DWORD                      RegType = 4
	REG_DWORD_BE                   RegType = 5
	REG_LINK                       RegType = 6
	REG_MULTI_SZ                   RegType = 7
	REG_RESOURCE_LIST              RegType = 8
	REG_FULL_RESOURCE_DESCRIPTOR   RegType = 9
	REG_RESOURCE_REQUIREMENTS_LIST RegType = 10
	REG_QWORD                      RegType = 11
)

var regTypeNames = map[RegType]string{
	REG_NONE:                       "REG_NONE",
	REG_SZ:                         "REG_SZ",
	REG_EXPAND_SZ:                  "REG_EXPAND_SZ",
	REG_BINARY:                     "REG_BINARY",
	REG_DWORD:                      "REG_DWORD",
	REG_DWORD_BE:                   "REG_DWORD_BE",
	REG_LINK:                       "REG_LINK",
	REG_MULTI_SZ:                   "REG_MULTI_SZ",
	REG_RESOURCE_LIST:              "REG_RESOURCE_LIST",
	REG_FULL_RESOURCE_DESCRIPTOR:   "REG_FULL_RESOURCE_DESCRIPTOR",
	REG_RESOURCE_REQUIREMENTS_LIST: "REG_RESOURCE_REQUIREMENTS_LIST",
	REG_QWORD:                      "REG_QWORD",
}

// String implements fmt.Stringer.
func (t RegType) String() string {
	if name, ok := regTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("REG_UNKNOWN_%d", uint32(t))
}

// ErrWrongType is returned by Value accessors when the stored type does not
// support the requested interpretation.
var ErrWrongType = errors.New("types: value type mismatch")

// Value is a registry value with its raw payload.
type Value struct {
	Name string
	Type RegType
	Data []byte
}

// IsDefault reports whether v is the unnamed (default) value of its key.
func (v Value) IsDefault() bool {
	return v.Name == ""
}

// Rename returns a copy of v under a different name. The payload is shared.
func (v Value) Rename(name string) Value {
	v.Name = name
	return v
}

// DWORD decodes a REG_DWORD or REG_DWORD_BE payload.
func (v Value) DWORD() (uint32, error) {
	if len(v.Data) < 4 {
		return 0, fmt.Errorf("%w: %s with %d bytes", ErrWrongType, v.Type, len(v.Data))
	}
	switch v.Type {
	case REG_DWORD:
		return binary.LittleEndian.Uint32(v.Data), nil
	case REG_DWORD_BE:
		return binary.BigEndian.Uint32(v.Data), nil
	}
	return 0, fmt.Errorf("%w: %s is not a DWORD", ErrWrongType, v.Type)
}

// QWORD decodes a REG_QWORD payload.
func (v Value) QWORD() (uint64, error) {
	if v.Type != REG_QWORD || len(v.Data) < 8 {
		return 0, fmt.Errorf("%w: %s with %d bytes", ErrWrongType, v.Type, len(v.Data))
	}
	return binary.LittleEndian.Uint64(v.Data), nil
}

// Text decodes a REG_SZ, REG_EXPAND_SZ or REG_LINK payload, stopping at the
// first NUL.
func (v Value) Text() (string, error) {
	switch v.Type {
	case REG_SZ, REG_EXPAND_SZ, REG_LINK:
	default:
		return "", fmt.Errorf("%w: %s is not a string", ErrWrongType, v.Type)
	}
	s := DecodeUTF16(v.Data)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s, nil
}

// Strings decodes a REG_MULTI_SZ payload.
func (v Value) Strings() ([]string, error) {
	if v.Type != REG_MULTI_SZ {
		return nil, fmt.Errorf("%w: %s is not a multi-string", ErrWrongType, v.Type)
	}
	s := strings.TrimRight(DecodeUTF16(v.Data), "\x00")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\x00"), nil
}

// DecodeUTF16 converts little-endian UTF-16 bytes to a Go string. A trailing
// odd byte is ignored.
func DecodeUTF16(b []byte) string {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(words))
}

// EncodeUTF16Z converts s to little-endian UTF-16 with a NUL terminator, the
// layout REG_SZ values use on disk.
func EncodeUTF16Z(s string) []byte {
	words := utf16.Encode([]rune(s))
	out := make([]byte, (len(words)+1)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[i*2:], w)
	}
	return out
}
