package regtext

import (
	"errors"
	"fmt"
	"strings"
)

// unescapeRegString undoes .reg string escaping (\\ and \").
func unescapeRegString(s string) string {
	if strings.IndexByte(s, '\\') == -1 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, Backslash, EscapedBackslash)
	return strings.ReplaceAll(s, Quote, EscapedQuote)
}

// quoteName renders a value name token including the assignment, e.g.
// "Name"= or @= for the default value.
func quoteName(name string) string {
	if name == "" {
		return DefaultValuePrefix
	}
	return Quote + escapeString(name) + Quote + ValueAssignment
}

// findClosingQuote returns the index of the quote that closes the string
// opened at line[0], skipping quotes preceded by an odd number of
// backslashes. It returns -1 when the string is unterminated.
func findClosingQuote(line string) int {
	for i := 1; i < len(line); i++ {
		if line[i] != '"' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 1 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			continue
		}
		return i
	}
	return -1
}

var errMissingColon = errors.New("regtext: hex data missing ':'")

// parseHexBytes decodes the comma separated bytes after a hex:/hex(N): prefix.
// Whitespace, CR/LF and continuation backslashes are ignored and single
// digit bytes are zero-padded, matching what regedit accepts.
func parseHexBytes(payload string) ([]byte, error) {
	colon := strings.IndexByte(payload, ':')
	if colon == -1 {
		return nil, errMissingColon
	}
	body := payload[colon+1:]
	out := make([]byte, 0, len(body)/3+1)
	for _, part := range strings.Split(body, HexByteSeparator) {
		part = strings.Map(func(r rune) rune {
			if isHexSkipChar(r) {
				return -1
			}
			return r
		}, part)
		if part == "" {
			continue
		}
		if len(part) > 2 {
			return nil, fmt.Errorf("regtext: invalid hex byte %q", part)
		}
		var v byte
		for i := 0; i < len(part); i++ {
			n := hexCharToNibble(part[i])
			if n == 0xFF {
				return nil, fmt.Errorf("regtext: invalid hex byte %q", part)
			}
			v = v<<4 | n
		}
		out = append(out, v)
	}
	return out, nil
}

func hexCharToNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0xFF
	}
}

func isHexSkipChar(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\\'
}

// ExpandRoot replaces an abbreviated root (HKCU, HKU, ...) at the start of a
// key path with its full name. Other paths are returned trimmed.
func ExpandRoot(path string) string {
	path = strings.Trim(strings.TrimSpace(path), Backslash)
	root, rest, found := strings.Cut(path, Backslash)
	if full, ok := rootAliases[strings.ToUpper(root)]; ok {
		root = full
	}
	if !found {
		return root
	}
	return root + Backslash + rest
}
