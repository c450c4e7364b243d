package rescue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joshuapare/regrescue/internal/snapshot"
)

// Run executes the full search and returns the first successful result. When
// nothing is found the partial result is returned with ErrNotFound.
func (f *Fixer) Run(ctx context.Context) (*Result, error) {
	if err := f.Profile.Validate(); err != nil {
		return nil, err
	}
	log := f.log()
	log.Info("starting rescue", "mode", f.Options.Mode, "key", f.Profile.LiveKey(),
		"old", f.Profile.OldValue, "new", f.Profile.NewValue, "cutoff", f.Profile.Cutoff)

	f.removeLeftovers()

	if f.Options.RegFile != "" {
		res, ok, err := f.ProcessRegFile(ctx, f.Options.RegFile)
		if err != nil || ok {
			return res, err
		}
	}

	res := &Result{Mode: f.Options.Mode.String(), BackupFile: f.backupLive(ctx)}
	phases := []struct {
		what     string
		discover func(context.Context) []snapshot.Source
	}{
		{"restore point", f.restorePoints},
		{"shadow copy", f.shadowCopies},
	}
	for _, p := range phases {
		found, err := f.search(ctx, p.what, p.discover(ctx), res)
		if found || err != nil {
			return res, err
		}
	}
	log.Error("value not found", "key", f.Profile.LiveKey(), "value", f.Profile.OldValue)
	return res, ErrNotFound
}

func (f *Fixer) restorePoints(ctx context.Context) []snapshot.Source {
	rps, err := f.Sources.RestorePoints(ctx, f.Identity.SID)
	if err != nil {
		f.log().Warn("restore points unavailable", "err", err)
	}
	return rps
}

func (f *Fixer) shadowCopies(ctx context.Context) []snapshot.Source {
	shadows, warnings, err := f.Sources.Shadows(ctx, f.Identity.User)
	for _, w := range warnings {
		f.log().Warn(w)
	}
	if err != nil {
		f.log().Warn("shadow copies unavailable", "err", err)
	}
	return shadows
}

// search filters, orders and attempts sources of one kind, recording progress
// in res. It reports whether a source succeeded; a non-nil error ends the run.
func (f *Fixer) search(ctx context.Context, what string, sources []snapshot.Source, res *Result) (bool, error) {
	log := f.log()
	kept, skipped := snapshot.BeforeCutoff(sources, f.Profile.Cutoff)
	for _, s := range skipped {
		log.Info("skipping "+what, "source", s.Label, "reason", s.Reason)
	}
	res.Skipped = append(res.Skipped, skipped...)
	snapshot.SortNewestFirst(kept)
	if len(kept) == 0 {
		log.Info("no " + what + " before cutoff")
		return false, nil
	}

	for _, src := range kept {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if src.HivePath == "" {
			log.Info(what+" has no hive for this user", "source", src.Label)
			continue
		}
		res.Tried++
		got, err := f.Attempt(ctx, src)
		if got != nil {
			res.Source = got.Source
			res.OutputFile = got.OutputFile
			res.Merged = got.Merged
			res.Value = got.Value
		}
		switch {
		case err == nil:
			log.Info("value recovered", "source", src.Label, "output", res.OutputFile, "merged", res.Merged)
			return true, nil
		case errors.Is(err, ErrMerge), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return false, err
		case errors.Is(err, ErrValueAbsent):
			log.Info(what+" does not hold the value", "source", src.Label)
		default:
			log.Warn(what+" failed", "source", src.Label, "err", err)
		}
	}
	log.Info("no suitable " + what + " found")
	return false, nil
}

// removeLeftovers deletes artifacts of an earlier run so a stale file is
// never mistaken for fresh output.
func (f *Fixer) removeLeftovers() {
	for _, name := range []string{f.Profile.Files.SnapshotExport, f.Profile.Files.FixedOutput} {
		path := f.Profile.Path(name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.log().Warn("could not remove leftover file", "path", path, "err", err)
		}
	}
}

// backupLive exports the live key. Failure is logged, not fatal: the key may
// simply not exist yet.
func (f *Fixer) backupLive(ctx context.Context) string {
	path := f.Profile.Path(f.Profile.Files.LiveBackup)
	if err := f.Registry.Export(ctx, f.Profile.LiveKey(), path); err != nil {
		f.log().Warn("failed to back up live key", "key", f.Profile.LiveKey(), "err", err)
		return ""
	}
	f.log().Info("live key backed up", "path", path)
	return path
}

func (f *Fixer) writeFixed(path, text string) error {
	data, err := encode(text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rescue: write %s: %w", path, err)
	}
	return nil
}
