package rescue

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joshuapare/regrescue/internal/regtext"
)

// ProcessRegFile repairs a user supplied .reg backup of the key. It reports
// false, with no error, when the file is missing, unreadable or does not
// contain the key, so the caller can fall back to the snapshot search.
func (f *Fixer) ProcessRegFile(ctx context.Context, path string) (*Result, bool, error) {
	log := f.log()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Warn("reg file does not exist", "path", path)
		return nil, false, nil
	}
	text, err := readRegFile(path)
	if err != nil {
		log.Warn("reg file unreadable", "path", path, "err", err)
		return nil, false, nil
	}
	if !regtext.HasKey(text, f.Profile.LiveKeyLong()) {
		log.Info("reg file lacks the key, searching snapshots", "path", path, "key", f.Profile.LiveKeyLong())
		return nil, false, nil
	}

	res := &Result{RegFile: path, Mode: f.Options.Mode.String(), BackupFile: f.backupLive(ctx)}
	fixed, n := regtext.RenameValue(text, f.Profile.OldValue, f.Profile.NewValue)
	if n == 0 {
		log.Warn("reg file does not name the old value; writing it unchanged", "path", path, "value", f.Profile.OldValue)
	}
	if v, err := regtext.FindValue(text, f.Profile.LiveKeyLong(), f.Profile.OldValue); err == nil {
		res.Value = &v
	}

	res.OutputFile = f.Profile.Path(f.Profile.Files.RegFileOutput)
	if err := f.writeFixed(res.OutputFile, fixed); err != nil {
		return nil, false, err
	}
	log.Info("fixed reg file written", "path", res.OutputFile, "renamed", n)
	return res, true, f.merge(ctx, res)
}
