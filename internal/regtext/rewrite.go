package regtext

import "strings"

// HasKey reports whether the document contains a [keyPath] section. Root
// abbreviations (HKCU, HKU, ...) are accepted on either side.
func HasKey(text, keyPath string) bool {
	for _, line := range splitDocument(text).lines {
		if path, deleted, ok := sectionPath(line); ok && !deleted && keyMatches(path, keyPath) {
			return true
		}
	}
	return false
}

// RewriteRoot moves every section at or below from so that it sits below to
// instead, e.g. HKEY_USERS\TempHive\Software\X -> HKEY_CURRENT_USER\Software\X.
// It returns the rewritten text and the number of section headers changed.
func RewriteRoot(text, from, to string) (string, int) {
	from = ExpandRoot(from)
	to = ExpandRoot(to)
	doc := splitDocument(text)
	changed := 0
	for i, line := range doc.lines {
		path, deleted, ok := sectionPath(line)
		if !ok {
			continue
		}
		rest, ok := cutKeyPrefix(ExpandRoot(path), from)
		if !ok {
			continue
		}
		prefix := KeyOpenBracket
		if deleted {
			prefix += DeleteKeyPrefix
		}
		doc.lines[i] = prefix + to + rest + KeyCloseBracket
		changed++
	}
	return doc.join(), changed
}

// cutKeyPrefix strips prefix from path when path is prefix itself or one of
// its descendants. The remainder keeps its leading backslash.
func cutKeyPrefix(path, prefix string) (string, bool) {
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	if rest != "" && !strings.HasPrefix(rest, Backslash) {
		return "", false
	}
	return rest, true
}

// DuplicateValue copies every value block named oldName and inserts the copy,
// renamed to newName, directly after the original. Continuation lines of
// multi-line hex payloads travel with the block. Blocks already named newName
// in a section that also holds oldName are dropped so the copy is the only
// one. It returns the new text and the number of blocks duplicated.
func DuplicateValue(text, oldName, newName string) (string, int) {
	doc := splitDocument(text)
	holders := sectionsWithValue(doc.lines, oldName)

	out := make([]string, 0, len(doc.lines)+4)
	section := -1
	copies := 0
	for i := 0; i < len(doc.lines); {
		line := doc.lines[i]
		if _, _, ok := sectionPath(line); ok {
			section = i
			out = append(out, line)
			i++
			continue
		}
		name, _, ok := valueLine(line)
		if !ok {
			out = append(out, line)
			i++
			continue
		}
		end := blockEnd(doc.lines, i)
		block := doc.lines[i:end]
		switch {
		case strings.EqualFold(name, newName) && holders[section]:
			// superseded by the copy of oldName
		case strings.EqualFold(name, oldName):
			out = append(out, block...)
			out = append(out, renameBlock(block, newName)...)
			copies++
		default:
			out = append(out, block...)
		}
		i = end
	}
	doc.lines = out
	return doc.join(), copies
}

// RenameValue renames every value block called oldName to newName in place.
// Only name tokens change; payloads are left untouched.
func RenameValue(text, oldName, newName string) (string, int) {
	doc := splitDocument(text)
	renamed := 0
	for i := 0; i < len(doc.lines); {
		name, _, ok := valueLine(doc.lines[i])
		if !ok {
			i++
			continue
		}
		end := blockEnd(doc.lines, i)
		if strings.EqualFold(name, oldName) {
			copy(doc.lines[i:end], renameBlock(doc.lines[i:end], newName))
			renamed++
		}
		i = end
	}
	return doc.join(), renamed
}

// sectionsWithValue returns the line indexes of sections that contain a value
// named name (case-insensitively, like the registry). Values before the first section are keyed by -1.
func sectionsWithValue(lines []string, name string) map[int]bool {
	found := make(map[int]bool)
	section := -1
	for i := 0; i < len(lines); {
		if _, _, ok := sectionPath(lines[i]); ok {
			section = i
			i++
			continue
		}
		n, _, ok := valueLine(lines[i])
		if !ok {
			i++
			continue
		}
		if strings.EqualFold(n, name) {
			found[section] = true
		}
		i = blockEnd(lines, i)
	}
	return found
}
