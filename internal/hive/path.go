package hive

import (
	"fmt"
	"strings"

	"github.com/joshuapare/regrescue/pkg/types"
)

// rootPrefixes are stripped before walking, so callers may pass a path as
// reg.exe prints it. A loaded NTUSER.DAT has no HKCU node of its own.
var rootPrefixes = []string{
	"HKEY_CURRENT_USER", "HKCU",
	"HKEY_LOCAL_MACHINE", "HKLM",
	"HKEY_USERS", "HKU",
}

// splitPath normalizes separators, drops a leading root alias and returns the
// remaining segments.
func splitPath(path string) []string {
	path = strings.ReplaceAll(path, "/", `\`)
	path = strings.Trim(path, `\`)
	if head, rest, _ := strings.Cut(path, `\`); head != "" {
		for _, p := range rootPrefixes {
			if strings.EqualFold(head, p) {
				path = rest
				break
			}
		}
	}
	var out []string
	for _, seg := range strings.Split(path, `\`) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Find walks path from the root key. An empty path returns the root.
func (h *Hive) Find(path string) (Key, error) {
	k, err := h.Root()
	if err != nil {
		return Key{}, err
	}
	for _, seg := range splitPath(path) {
		next, err := k.Subkey(seg)
		if err != nil {
			return Key{}, fmt.Errorf("%s: %w", path, err)
		}
		k = next
	}
	return k, nil
}

// Lookup is Find followed by Value.
func (h *Hive) Lookup(path, name string) (types.Value, error) {
	k, err := h.Find(path)
	if err != nil {
		return types.Value{}, err
	}
	v, err := k.Value(name)
	if err != nil {
		return types.Value{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
