package regtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regrescue/pkg/types"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		v    types.Value
		want string
	}{
		{"string", types.Value{Name: "S", Type: types.REG_SZ, Data: types.EncodeUTF16Z(`a\"b`)}, `"S"="a\\\"b"`},
		{"dword", types.Value{Name: "D", Type: types.REG_DWORD, Data: []byte{1, 2, 0, 0}}, `"D"=dword:00000201`},
		{"binary", types.Value{Name: "B", Type: types.REG_BINARY, Data: []byte{0, 0xff}}, `"B"=hex:00,ff`},
		{"qword", types.Value{Name: "Q", Type: types.REG_QWORD, Data: []byte{1, 0, 0, 0, 0, 0, 0, 0}}, `"Q"=hex(b):01,00,00,00,00,00,00,00`},
		{"empty binary", types.Value{Name: "E", Type: types.REG_BINARY}, `"E"=hex:`},
		{"default", types.Value{Type: types.REG_SZ, Data: types.EncodeUTF16Z("x")}, `@="x"`},
		{"unterminated string", types.Value{Name: "U", Type: types.REG_SZ, Data: []byte{'h', 0}}, `"U"=hex(1):68,00`},
		{"short dword", types.Value{Name: "W", Type: types.REG_DWORD, Data: []byte{1}}, `"W"=hex(4):01`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.v))
		})
	}
}

func TestEmitWrapsLongHex(t *testing.T) {
	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i)
	}
	v := types.Value{Name: oldName, Type: types.REG_BINARY, Data: data}
	text := Emit(`HKCU\Software\KLab\BleachBraveSouls`, v, v.Rename(newName))

	lines := strings.Split(text, CRLF)
	require.Equal(t, RegFileHeader, lines[0])
	require.Equal(t, `[HKEY_CURRENT_USER\Software\KLab\BleachBraveSouls]`, lines[2])
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), MaxLineWidth, line)
	}

	for _, name := range []string{oldName, newName} {
		got, err := FindValue(text, `HKEY_CURRENT_USER\Software\KLab\BleachBraveSouls`, name)
		require.NoError(t, err)
		assert.Equal(t, data, got.Data)
		assert.Equal(t, types.REG_BINARY, got.Type)
	}
}
