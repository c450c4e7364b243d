package regtext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}

	// ErrEmpty is returned when a document holds no text at all.
	ErrEmpty = errors.New("regtext: empty document")
)

// Decode converts raw .reg bytes into a Go string. A BOM always wins; without
// one, data that looks like UTF-16LE (NUL high bytes on ASCII text) is decoded
// as such and everything else is treated as UTF-8.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !hasBOM(data) && looksUTF16LE(data) {
		fallback = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", fmt.Errorf("regtext: decode: %w", err)
	}
	return string(out), nil
}

// EncodeUTF16LE renders text the way reg.exe writes it: UTF-16LE with a BOM and
// CRLF line endings.
func EncodeUTF16LE(text string) ([]byte, error) {
	text = normalizeNewlines(text)
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("regtext: encode: %w", err)
	}
	return out, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, utf16LEBOM) ||
		bytes.HasPrefix(data, utf16BEBOM) ||
		bytes.HasPrefix(data, utf8BOM)
}

// looksUTF16LE samples the leading code units. Every .reg file starts with an
// ASCII header, so in UTF-16LE the odd bytes there are all zero.
func looksUTF16LE(data []byte) bool {
	n := min(len(data), 64) &^ 1
	if n < 4 {
		return false
	}
	zeros := 0
	for i := 1; i < n; i += 2 {
		if data[i] == 0 {
			zeros++
		}
	}
	return zeros*4 >= n/2*3
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, CRLF, LF)
	text = strings.ReplaceAll(text, CR, LF)
	return strings.ReplaceAll(text, LF, CRLF)
}
