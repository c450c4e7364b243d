package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegType_String(t *testing.T) {
	tests := []struct {
		regType  RegType
		expected string
	}{
		{REG_NONE, "REG_NONE"},
		{REG_SZ, "REG_SZ"},
		{REG_BINARY, "REG_BINARY"},
		{REG_DWORD, "REG_DWORD"},
		{REG_MULTI_SZ, "REG_MULTI_SZ"},
		{REG_QWORD, "REG_QWORD"},
		{RegType(42), "REG_UNKNOWN_42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.regType.String())
	}
}

func TestValueDecoders(t *testing.T) {
	dw := Value{Type: REG_DWORD, Data: []byte{0x78, 0x56, 0x34, 0x12}}
	n, err := dw.DWORD()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), n)

	be := Value{Type: REG_DWORD_BE, Data: []byte{0x12, 0x34, 0x56, 0x78}}
	n, err = be.DWORD()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), n)

	qw := Value{Type: REG_QWORD, Data: []byte{1, 0, 0, 0, 0, 0, 0, 0x80}}
	q, err := qw.QWORD()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000000000000001), q)

	sz := Value{Type: REG_SZ, Data: EncodeUTF16Z("héllo")}
	s, err := sz.Text()
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	multi := Value{Type: REG_MULTI_SZ, Data: append(append(EncodeUTF16Z("a"), EncodeUTF16Z("bc")...), 0, 0)}
	parts, err := multi.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "bc"}, parts)

	_, err = sz.DWORD()
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = dw.Text()
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestValueRenameSharesPayload(t *testing.T) {
	v := Value{Name: "old", Type: REG_BINARY, Data: []byte{1, 2}}
	r := v.Rename("new")
	assert.Equal(t, "new", r.Name)
	assert.Equal(t, "old", v.Name)
	assert.Equal(t, v.Data, r.Data)
	assert.False(t, r.IsDefault())
	assert.True(t, Value{}.IsDefault())
}
