// Package snapshot discovers older copies of the user's registry hive: System
// Restore snapshot directories and Volume Shadow Copies.
package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNoHive reports a snapshot that holds no hive for the user.
var ErrNoHive = errors.New("snapshot: no user hive")

// Kind is the origin of a Source.
type Kind int

const (
	RestorePoint Kind = iota
	Shadow
)

func (k Kind) String() string {
	switch k {
	case RestorePoint:
		return "restore-point"
	case Shadow:
		return "shadow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Source is one candidate location of an older hive.
type Source struct {
	Kind Kind `json:"kind"`
	// Label identifies the source in logs: the RP directory or shadow ID.
	Label string `json:"label"`
	// Root is the snapshot directory or the shadow device path.
	Root    string    `json:"root"`
	Created time.Time `json:"created"`
	// HivePath is empty when the source holds no hive for the user.
	HivePath string `json:"hive_path,omitempty"`
}

func (s Source) String() string {
	return fmt.Sprintf("%s %s (%s)", s.Kind, s.Label, stamp(s.Created))
}

// Skipped is a source rejected by BeforeCutoff.
type Skipped struct {
	Source
	Reason string `json:"reason"`
}

var epoch = time.Unix(0, 0)

// BeforeCutoff keeps the sources created strictly before cutoff. Sources with
// no timestamp or the Unix epoch are rejected as untrustworthy.
func BeforeCutoff(sources []Source, cutoff time.Time) ([]Source, []Skipped) {
	var kept []Source
	var skipped []Skipped
	for _, s := range sources {
		switch {
		case s.Created.IsZero():
			skipped = append(skipped, Skipped{s, "no creation time"})
		case s.Created.Equal(epoch):
			skipped = append(skipped, Skipped{s, "invalid timestamp (Unix epoch)"})
		case !s.Created.Before(cutoff):
			skipped = append(skipped, Skipped{s, fmt.Sprintf("created %s, not before cutoff %s", stamp(s.Created), stamp(cutoff))})
		default:
			kept = append(kept, s)
		}
	}
	return kept, skipped
}

// SortNewestFirst orders sources by creation time, newest first. Ties keep
// their discovery order.
func SortNewestFirst(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Created.After(sources[j].Created)
	})
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}
	return t.UTC().Format("2006-01-02 15:04:05Z")
}
