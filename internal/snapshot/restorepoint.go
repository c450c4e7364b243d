package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultRestoreRoot is where System Restore keeps its RP directories.
const DefaultRestoreRoot = `C:\System Volume Information`

// FindRestorePoints walks root for directories named RP* that contain a
// "snapshot" subdirectory. Created is the RP directory's modification time.
// Unreadable subtrees are skipped; only a failure on root itself is returned.
func FindRestorePoints(root string) ([]Source, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("snapshot: restore root: %w", err)
	}
	var out []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root || !isRestorePointName(d.Name()) {
			return nil
		}
		snap := filepath.Join(path, "snapshot")
		if st, err := os.Stat(snap); err != nil || !st.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, Source{
			Kind:    RestorePoint,
			Label:   path,
			Root:    snap,
			Created: info.ModTime().UTC(),
		})
		return fs.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: walk %s: %w", root, err)
	}
	return out, nil
}

func isRestorePointName(name string) bool {
	return len(name) >= 2 && strings.EqualFold(name[:2], "RP")
}

// FindUserHive returns the first regular file in dir, in name order, whose
// name contains sid. Matching ignores case.
func FindUserHive(dir, sid string) (string, error) {
	if sid == "" {
		return "", fmt.Errorf("%w: empty SID", ErrNoHive)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	needle := strings.ToLower(sid)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.Contains(strings.ToLower(e.Name()), needle) {
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNoHive, sid, dir)
}

// ResolveRestorePoints fills HivePath for every source that has a hive for sid.
func ResolveRestorePoints(sources []Source, sid string) {
	for i := range sources {
		p, err := FindUserHive(sources[i].Root, sid)
		if err != nil {
			p = ""
		}
		sources[i].HivePath = p
	}
}
