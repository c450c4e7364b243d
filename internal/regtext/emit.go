package regtext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/joshuapare/regrescue/pkg/types"
)

// Emit renders a complete .reg document holding one section with the given
// values, in the layout reg.exe export produces. Lines end in CRLF; callers
// pass the result to EncodeUTF16LE before handing it to reg.exe.
func Emit(keyPath string, values ...types.Value) string {
	var buf strings.Builder
	buf.WriteString(RegFileHeader + CRLF + CRLF)
	buf.WriteString(KeyOpenBracket + ExpandRoot(keyPath) + KeyCloseBracket + CRLF)
	for _, v := range values {
		buf.WriteString(FormatValue(v))
		buf.WriteString(CRLF)
	}
	buf.WriteString(CRLF)
	return buf.String()
}

// FormatValue renders a single value block without a trailing newline.
// Strings that would not survive a round trip (missing terminator, embedded
// NULs) are written as hex(1) so the bytes are preserved exactly.
func FormatValue(v types.Value) string {
	head := quoteName(v.Name)
	switch v.Type {
	case types.REG_SZ:
		if s, ok := cleanString(v.Data); ok {
			return head + Quote + escapeString(s) + Quote
		}
	case types.REG_DWORD:
		if len(v.Data) == 4 {
			n, _ := v.DWORD()
			return head + DWORDPrefix + fmt.Sprintf(DWORDHexFormat, n)
		}
	}
	prefix := HexPrefix
	if v.Type != types.REG_BINARY {
		prefix = fmt.Sprintf(HexTypeFormat, uint32(v.Type))
	}
	return wrapHex(head+prefix, v.Data)
}

// cleanString reports whether data is a NUL-terminated UTF-16 string without
// embedded NULs, and returns it.
func cleanString(data []byte) (string, bool) {
	if len(data) < 2 || len(data)%2 != 0 || !bytes.HasSuffix(data, []byte{0, 0}) {
		return "", false
	}
	s := types.DecodeUTF16(data[:len(data)-2])
	if strings.IndexByte(s, 0) >= 0 {
		return "", false
	}
	return s, true
}

// wrapHex appends comma separated bytes to head, breaking lines with a
// trailing backslash so no line exceeds MaxLineWidth.
func wrapHex(head string, data []byte) string {
	var out strings.Builder
	line := head
	onLine := 0
	for i, b := range data {
		piece := fmt.Sprintf(HexByteFormat, b)
		if i < len(data)-1 {
			piece += HexByteSeparator
		}
		if onLine > 0 && len(line)+len(piece)+len(Backslash) > MaxLineWidth {
			out.WriteString(line + Backslash + CRLF)
			line = ContinuationIndent
			onLine = 0
		}
		line += piece
		onLine++
	}
	out.WriteString(line)
	return out.String()
}
