package snapshot

import (
	"context"
	"time"

	"github.com/joshuapare/regrescue/internal/sysexec"
)

// Finder discovers sources on the running system.
type Finder struct {
	// RestoreRoot defaults to DefaultRestoreRoot.
	RestoreRoot string
	Runner      sysexec.Runner
	// Location interprets vssadmin times; nil means time.Local.
	Location *time.Location
}

// RestorePoints lists restore points with HivePath resolved for sid.
func (f Finder) RestorePoints(_ context.Context, sid string) ([]Source, error) {
	root := f.RestoreRoot
	if root == "" {
		root = DefaultRestoreRoot
	}
	sources, err := FindRestorePoints(root)
	if err != nil {
		return nil, err
	}
	ResolveRestorePoints(sources, sid)
	return sources, nil
}

// Shadows lists shadow copies with HivePath resolved for user.
func (f Finder) Shadows(ctx context.Context, user string) ([]Source, []string, error) {
	shadows, warnings, err := ListShadows(ctx, f.Runner, f.Location)
	if err != nil {
		return nil, warnings, err
	}
	out := make([]Source, 0, len(shadows))
	for _, s := range shadows {
		out = append(out, s.Source(user))
	}
	return out, warnings, nil
}
