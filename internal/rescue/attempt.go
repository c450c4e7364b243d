package rescue

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/regrescue/internal/hive"
	"github.com/joshuapare/regrescue/internal/liveedit"
	"github.com/joshuapare/regrescue/internal/regtext"
	"github.com/joshuapare/regrescue/internal/snapshot"
	"github.com/joshuapare/regrescue/pkg/types"
)

// Attempt recovers the value from one source. It returns ErrValueAbsent when
// the source does not hold the value; the result is non-nil whenever a fixed
// file was written, even if merging it failed.
func (f *Fixer) Attempt(ctx context.Context, src snapshot.Source) (*Result, error) {
	if src.HivePath == "" {
		return nil, fmt.Errorf("%w: %s has no hive", ErrValueAbsent, src.Label)
	}
	if f.Options.Offline {
		return f.attemptOffline(ctx, src)
	}
	if !f.Options.NoProbe && f.probeAbsent(src) {
		return nil, ErrValueAbsent
	}
	return f.attemptMounted(ctx, src)
}

// probeAbsent reads the hive file directly. Only a definite "not there"
// counts; an unreadable file falls through to reg load, which may succeed
// where a plain read cannot.
func (f *Fixer) probeAbsent(src snapshot.Source) bool {
	_, err := f.lookupOffline(src.HivePath)
	switch {
	case err == nil:
		f.log().Debug("probe found value", "hive", src.HivePath)
		return false
	case errors.Is(err, hive.ErrNotFound):
		f.log().Debug("probe: value absent, not mounting", "hive", src.HivePath)
		return true
	default:
		f.log().Debug("probe inconclusive, mounting instead", "hive", src.HivePath, "err", err)
		return false
	}
}

// lookupOffline reads the value from the hive file. In a dirty hive a missing
// value is reported as errStaleHive, not hive.ErrNotFound: reg load replays
// the transaction logs and may still find it.
func (f *Fixer) lookupOffline(path string) (types.Value, error) {
	h, err := f.openHive(path)
	if err != nil {
		return types.Value{}, err
	}
	defer h.Close()
	v, err := h.Lookup(f.Profile.CleanKey(), f.Profile.OldValue)
	if !h.Dirty() {
		return v, err
	}
	if errors.Is(err, hive.ErrNotFound) {
		return types.Value{}, fmt.Errorf("%w: %s", errStaleHive, path)
	}
	if err == nil {
		f.log().Warn("value read from a hive with unreplayed log data; it may be stale", "hive", path)
	}
	return v, err
}

func (f *Fixer) attemptOffline(ctx context.Context, src snapshot.Source) (*Result, error) {
	v, err := f.lookupOffline(src.HivePath)
	if errors.Is(err, hive.ErrNotFound) {
		return nil, ErrValueAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("rescue: read %s: %w", src.HivePath, err)
	}
	text := regtext.Emit(f.Profile.LiveKeyLong(), v, v.Rename(f.Profile.NewValue))
	out := f.Profile.Path(f.Profile.Files.FixedOutput)
	if err := f.writeFixed(out, text); err != nil {
		return nil, err
	}
	f.log().Info("fixed file written from offline hive", "source", src.Label, "path", out)
	res := &Result{Source: &src, OutputFile: out, Value: &v, Mode: f.Options.Mode.String()}
	return res, f.merge(ctx, res)
}

func (f *Fixer) attemptMounted(ctx context.Context, src snapshot.Source) (*Result, error) {
	mount := f.Profile.MountName
	if err := f.Registry.Load(ctx, mount, src.HivePath); err != nil {
		return nil, err
	}
	f.log().Debug("hive mounted", "source", src.Label, "mount", mount)
	defer func() {
		// A detached context so cancellation never leaves the hive mounted.
		if err := f.Registry.Unload(context.WithoutCancel(ctx), mount); err != nil {
			f.log().Warn("failed to unload hive", "mount", mount, "err", err)
		}
	}()

	mounted := mount + `\` + f.Profile.CleanKey()
	has, err := f.Live.HasValue(liveedit.Users, mounted, f.Profile.OldValue)
	if err != nil {
		return nil, fmt.Errorf("rescue: query mounted hive: %w", err)
	}
	if !has {
		return nil, ErrValueAbsent
	}
	var value *types.Value
	if f.Options.Direct && f.live() {
		v, err := f.Live.ReadValue(liveedit.Users, mounted, f.Profile.OldValue)
		if err != nil {
			return nil, fmt.Errorf("rescue: read mounted value: %w", err)
		}
		value = &v
	}

	exported := f.Profile.Path(f.Profile.Files.SnapshotExport)
	if err := f.Registry.Export(ctx, f.Profile.MountKey(), exported); err != nil {
		return nil, err
	}
	text, err := readRegFile(exported)
	if err != nil {
		return nil, err
	}
	text, _ = regtext.RewriteRoot(text, f.Profile.MountKeyLong(), f.Profile.LiveKeyLong())
	text, n := regtext.DuplicateValue(text, f.Profile.OldValue, f.Profile.NewValue)
	if n == 0 {
		return nil, fmt.Errorf("rescue: export %s lacks %q", exported, f.Profile.OldValue)
	}
	if value == nil {
		if v, err := regtext.FindValue(text, f.Profile.LiveKeyLong(), f.Profile.OldValue); err == nil {
			value = &v
		}
	}

	out := f.Profile.Path(f.Profile.Files.FixedOutput)
	if err := f.writeFixed(out, text); err != nil {
		return nil, err
	}
	f.log().Info("fixed file written", "source", src.Label, "path", out)
	res := &Result{Source: &src, OutputFile: out, Value: value, Mode: f.Options.Mode.String()}
	return res, f.merge(ctx, res)
}

// merge applies a fixed result to the live registry in live mode.
func (f *Fixer) merge(ctx context.Context, res *Result) error {
	if !f.live() {
		f.log().Info("simulation mode: live registry left untouched", "file", res.OutputFile)
		return nil
	}
	if f.Options.Direct && res.Value != nil {
		v := res.Value.Rename(f.Profile.NewValue)
		if err := f.Live.WriteValue(liveedit.CurrentUser, f.Profile.CleanKey(), v); err != nil {
			return fmt.Errorf("%w: %w", ErrMerge, err)
		}
		res.Merged = true
		f.log().Info("value written to live registry", "key", f.Profile.LiveKey(), "value", v.Name)
		return nil
	}
	if err := f.Registry.Import(ctx, res.OutputFile); err != nil {
		return fmt.Errorf("%w: %w", ErrMerge, err)
	}
	res.Merged = true
	f.log().Info("fixed file merged into live registry", "file", res.OutputFile)
	return nil
}

func readRegFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("rescue: %w", err)
	}
	text, err := regtext.Decode(data)
	if err != nil {
		return "", fmt.Errorf("rescue: %s: %w", path, err)
	}
	return text, nil
}

func encode(text string) ([]byte, error) {
	data, err := regtext.EncodeUTF16LE(text)
	if err != nil {
		return nil, fmt.Errorf("rescue: encode: %w", err)
	}
	return data, nil
}
