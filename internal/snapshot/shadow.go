package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joshuapare/regrescue/internal/sysexec"
)

// ShadowCopy is one entry of `vssadmin list shadows`.
type ShadowCopy struct {
	ID             string
	SetID          string
	OriginalVolume string
	Volume         string
	// Created is UTC; zero when the creation line was missing or unparsable.
	Created time.Time
}

// Labels as printed by vssadmin on English systems.
const (
	setPrefix      = "Contents of shadow copy set ID:"
	createdMarker  = "at creation time:"
	idPrefix       = "Shadow Copy ID:"
	originalPrefix = "Original Volume:"
	volumePrefix   = "Shadow Copy Volume:"
	noItemsMarker  = "No items found"
)

// creationLayouts are tried in order. vssadmin follows the user's short date
// format, which is US style on most systems.
var creationLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// ParseShadowList reads vssadmin output. Creation times are interpreted in loc
// and converted to UTC. A shadow is emitted when its volume line is seen;
// unparsable times are reported as warnings and leave Created zero.
func ParseShadowList(r io.Reader, loc *time.Location) ([]ShadowCopy, []string, error) {
	if loc == nil {
		loc = time.Local
	}
	var (
		out      []ShadowCopy
		warnings []string
		setID    string
		created  time.Time
		cur      ShadowCopy
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, setPrefix):
			setID = field(line, setPrefix)
			created = time.Time{}
		case strings.Contains(line, createdMarker):
			_, raw, _ := strings.Cut(line, createdMarker)
			raw = strings.TrimSpace(raw)
			t, err := parseCreation(raw, loc)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("could not parse shadow creation time %q", raw))
			}
			created = t
		case strings.HasPrefix(line, idPrefix):
			cur = ShadowCopy{ID: field(line, idPrefix)}
		case strings.HasPrefix(line, originalPrefix):
			cur.OriginalVolume = field(line, originalPrefix)
		case strings.HasPrefix(line, volumePrefix):
			cur.Volume = field(line, volumePrefix)
			cur.SetID = setID
			cur.Created = created
			out = append(out, cur)
			cur = ShadowCopy{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, fmt.Errorf("snapshot: read shadow list: %w", err)
	}
	return out, warnings, nil
}

func field(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}

func parseCreation(raw string, loc *time.Location) (time.Time, error) {
	var firstErr error
	for _, layout := range creationLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ListShadows runs `vssadmin list shadows` and parses the result. A system
// without shadows yields an empty list, not an error.
func ListShadows(ctx context.Context, r sysexec.Runner, loc *time.Location) ([]ShadowCopy, []string, error) {
	out, err := r.Run(ctx, "vssadmin", "list", "shadows")
	if err != nil {
		var exitErr *sysexec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Output), noItemsMarker) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("snapshot: list shadows: %w", err)
	}
	return ParseShadowList(strings.NewReader(string(out)), loc)
}

// ShadowHivePath returns the NTUSER.DAT path of user inside a shadow volume.
func ShadowHivePath(volume, user string) string {
	return strings.TrimRight(volume, `\`) + `\Users\` + user + `\NTUSER.DAT`
}

// Source converts the shadow into a Source. HivePath is set only when the
// user's hive exists in the shadow.
func (s ShadowCopy) Source(user string) Source {
	src := Source{Kind: Shadow, Label: s.ID, Root: s.Volume, Created: s.Created}
	if src.Label == "" {
		src.Label = s.Volume
	}
	if user == "" {
		return src
	}
	p := ShadowHivePath(s.Volume, user)
	if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
		src.HivePath = p
	}
	return src
}
