package regtext

import "strings"

// document is a .reg text split into lines with CR stripped. trailing records
// whether the source ended with a newline so Join can reproduce it.
type document struct {
	lines    []string
	trailing bool
}

func splitDocument(text string) document {
	text = strings.ReplaceAll(text, CRLF, LF)
	trailing := strings.HasSuffix(text, LF)
	text = strings.TrimSuffix(text, LF)
	if text == "" {
		return document{trailing: trailing}
	}
	return document{lines: strings.Split(text, LF), trailing: trailing}
}

// join reassembles the document with CRLF line endings.
func (d document) join() string {
	s := strings.Join(d.lines, CRLF)
	if d.trailing {
		s += CRLF
	}
	return s
}

// sectionPath reports the key path of a [section] line. Deletion sections
// ([-path]) are reported with deleted set.
func sectionPath(line string) (path string, deleted, ok bool) {
	trim := strings.TrimSpace(line)
	if !strings.HasPrefix(trim, KeyOpenBracket) || !strings.HasSuffix(trim, KeyCloseBracket) {
		return "", false, false
	}
	path = trim[len(KeyOpenBracket) : len(trim)-len(KeyCloseBracket)]
	if strings.HasPrefix(path, DeleteKeyPrefix) {
		return path[len(DeleteKeyPrefix):], true, true
	}
	return path, false, true
}

// valueLine splits a value line into its unescaped name, the byte offset where
// the payload starts, and ok. The default value is reported with an empty
// name.
func valueLine(line string) (name string, payloadAt int, ok bool) {
	indent := len(line) - len(strings.TrimLeft(line, " \t"))
	trim := line[indent:]
	if strings.HasPrefix(trim, DefaultValuePrefix) {
		return "", indent + len(DefaultValuePrefix), true
	}
	if !strings.HasPrefix(trim, Quote) {
		return "", 0, false
	}
	end := findClosingQuote(trim)
	if end < 0 || !strings.HasPrefix(trim[end+1:], ValueAssignment) {
		return "", 0, false
	}
	return unescapeRegString(trim[1:end]), indent + end + 1 + len(ValueAssignment), true
}

// continues reports whether the next line belongs to the same value.
func continues(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t"), Backslash)
}

// blockEnd returns the index one past the last line of the value block that
// starts at lines[i].
func blockEnd(lines []string, i int) int {
	j := i
	for j+1 < len(lines) && continues(lines[j]) {
		j++
	}
	return j + 1
}

// renameBlock rewrites the name token on the first line of a value block.
func renameBlock(block []string, name string) []string {
	out := make([]string, len(block))
	copy(out, block)
	if _, at, ok := valueLine(out[0]); ok {
		indent := out[0][:len(out[0])-len(strings.TrimLeft(out[0], " \t"))]
		out[0] = indent + quoteName(name) + out[0][at:]
	}
	return out
}

// keyMatches compares two key paths case-insensitively after expanding root
// abbreviations.
func keyMatches(a, b string) bool {
	return strings.EqualFold(ExpandRoot(a), ExpandRoot(b))
}
