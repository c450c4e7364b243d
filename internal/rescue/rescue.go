// Package rescue restores a corrupted registry value from an older copy of the
// user's hive.
//
// The search order is fixed: a user supplied .reg backup, then System Restore
// snapshots, then Volume Shadow Copies. Only sources created before the
// profile's cutoff are considered, newest first. The first source that holds
// the value produces a .reg file in which the key is re-rooted at HKCU and the
// value is duplicated under its new name; in live mode that file is merged.
package rescue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/hive"
	"github.com/joshuapare/regrescue/internal/liveedit"
	"github.com/joshuapare/regrescue/internal/logger"
	"github.com/joshuapare/regrescue/internal/snapshot"
	"github.com/joshuapare/regrescue/internal/winenv"
	"github.com/joshuapare/regrescue/pkg/types"
)

var (
	// ErrNotFound means no source before the cutoff held the value.
	ErrNotFound = errors.New("rescue: value not found in any snapshot before cutoff")
	// ErrValueAbsent means a single source did not hold the value.
	ErrValueAbsent = errors.New("rescue: value absent from source")
	// ErrMerge wraps a failure to apply the fixed file to the live registry.
	ErrMerge = errors.New("rescue: merge into live registry failed")

	errStaleHive = errors.New("rescue: hive has unreplayed log data")
)

// Registry is the reg.exe surface the fixer needs.
type Registry interface {
	Load(ctx context.Context, mount, hivePath string) error
	Unload(ctx context.Context, mount string) error
	Export(ctx context.Context, key, file string) error
	Import(ctx context.Context, file string) error
}

// LiveRegistry queries mounted hives and writes HKCU directly.
type LiveRegistry interface {
	HasValue(root liveedit.Root, path, name string) (bool, error)
	ReadValue(root liveedit.Root, path, name string) (types.Value, error)
	WriteValue(root liveedit.Root, path string, v types.Value) error
}

// Discoverer lists candidate sources.
type Discoverer interface {
	RestorePoints(ctx context.Context, sid string) ([]snapshot.Source, error)
	Shadows(ctx context.Context, user string) ([]snapshot.Source, []string, error)
}

// Options selects optional behaviour of a run.
type Options struct {
	Mode config.Mode
	// RegFile is a .reg backup tried before any snapshot.
	RegFile string
	// Offline reads the value straight from the snapshot hive file and
	// never mounts it.
	Offline bool
	// Direct writes the recovered value into HKCU in live mode instead of
	// importing the fixed .reg file.
	Direct bool
	// NoProbe disables the offline pre-check before mounting.
	NoProbe bool
}

// Fixer runs a rescue. Profile, Registry, Live and Sources are required.
type Fixer struct {
	Profile  config.Profile
	Registry Registry
	Live     LiveRegistry
	Sources  Discoverer
	Identity winenv.Identity
	Options  Options
	// Log defaults to logger.L.
	Log *slog.Logger
	// OpenHive defaults to hive.Open.
	OpenHive func(path string) (*hive.Hive, error)
}

// Result describes a successful run.
type Result struct {
	// Source is nil when a .reg backup was used.
	Source *snapshot.Source `json:"source,omitempty"`
	// RegFile is the .reg backup that was used, if any.
	RegFile    string `json:"regfile,omitempty"`
	OutputFile string `json:"output_file"`
	// BackupFile is empty when the live key could not be exported.
	BackupFile string `json:"backup_file,omitempty"`
	Merged     bool   `json:"merged"`
	Mode       string `json:"mode"`
	// Value is the recovered value under its old name, when it was decoded.
	Value *types.Value `json:"-"`
	// Skipped lists the sources rejected by the cutoff.
	Skipped []snapshot.Skipped `json:"-"`
	// Tried counts mounted or probed sources.
	Tried int `json:"tried"`
}

func (f *Fixer) log() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return logger.L
}

func (f *Fixer) openHive(path string) (*hive.Hive, error) {
	if f.OpenHive != nil {
		return f.OpenHive(path)
	}
	return hive.Open(path)
}

func (f *Fixer) live() bool { return f.Options.Mode == config.ModeLive }
