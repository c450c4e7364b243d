// Package config describes the registry value being rescued and where the
// rescue writes its artifacts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects whether a rescue only produces files or also merges them into
// the live registry.
type Mode int

const (
	// ModeSimulation writes .reg files but never touches the live registry.
	ModeSimulation Mode = iota
	// ModeLive additionally imports the fixed .reg file.
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "simulation"
}

// ParseMode converts a --mode flag value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simulation", "sim", "dry-run":
		return ModeSimulation, nil
	case "live":
		return ModeLive, nil
	default:
		return ModeSimulation, fmt.Errorf("config: unknown mode %q (want simulation or live)", s)
	}
}

// Files names the artifacts a run produces. Relative names resolve against
// Profile.OutputDir.
type Files struct {
	FixedOutput    string `yaml:"fixed_output"`
	LiveBackup     string `yaml:"live_backup"`
	SnapshotExport string `yaml:"snapshot_export"`
	RegFileOutput  string `yaml:"regfile_output"`
}

// Profile is the complete description of one rescue target.
type Profile struct {
	// Key is relative to HKEY_CURRENT_USER.
	Key         string        `yaml:"key"`
	OldValue    string        `yaml:"old_value"`
	NewValue    string        `yaml:"new_value"`
	Cutoff      time.Time     `yaml:"cutoff"`
	MountName   string        `yaml:"mount_name"`
	RestoreRoot string        `yaml:"restore_root"`
	OutputDir   string        `yaml:"output_dir"`
	LoadSettle  time.Duration `yaml:"load_settle"`
	Files       Files         `yaml:"files"`
}

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("config: invalid profile")

	defaultCutoff = time.Date(2025, time.October, 4, 9, 10, 16, 0, time.UTC)
)

// Default returns the built-in profile for the BleachBraveSouls save key.
func Default() Profile {
	return Profile{
		Key:         `Software\KLab\BleachBraveSouls`,
		OldValue:    "224515408_h90860828",
		NewValue:    "-907038497_h2948477015",
		Cutoff:      defaultCutoff,
		MountName:   "TempHive",
		RestoreRoot: `C:\System Volume Information`,
		LoadSettle:  150 * time.Millisecond,
		Files: Files{
			FixedOutput:    "BleachBraveSouls_from_VSS_PostUpdate_Fix.reg",
			LiveBackup:     "BleachBraveSouls_PostUpdate_Original.reg",
			SnapshotExport: "BleachBraveSouls_FromVSS.reg",
			RegFileOutput:  "BleachBraveSouls_from_REGBackup_File_PostUpdate_Fix.reg",
		},
	}
}

// Load reads a YAML profile from path. Fields absent from the file keep their
// defaults.
func Load(path string) (Profile, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("config: parse %s: %w", path, err)
	}
	p.Cutoff = p.Cutoff.UTC()
	return p, p.Validate()
}

// Validate checks the profile for values that would make a rescue meaningless
// or unsafe.
func (p Profile) Validate() error {
	switch {
	case strings.Trim(p.Key, `\ `) == "":
		return fmt.Errorf("%w: key is empty", ErrInvalid)
	case p.OldValue == "":
		return fmt.Errorf("%w: old_value is empty", ErrInvalid)
	case p.NewValue == "":
		return fmt.Errorf("%w: new_value is empty", ErrInvalid)
	case strings.EqualFold(p.OldValue, p.NewValue):
		return fmt.Errorf("%w: old_value and new_value name the same registry value", ErrInvalid)
	case p.Cutoff.IsZero() || p.Cutoff.Unix() <= 0:
		return fmt.Errorf("%w: cutoff must be after the Unix epoch", ErrInvalid)
	case p.MountName == "" || strings.ContainsAny(p.MountName, `\/`):
		return fmt.Errorf("%w: mount_name %q must be a single key name", ErrInvalid, p.MountName)
	case p.LoadSettle < 0:
		return fmt.Errorf("%w: load_settle is negative", ErrInvalid)
	}
	for _, f := range []string{p.Files.FixedOutput, p.Files.LiveBackup, p.Files.SnapshotExport, p.Files.RegFileOutput} {
		if f == "" {
			return fmt.Errorf("%w: output file names must not be empty", ErrInvalid)
		}
	}
	return nil
}

// CleanKey returns Key without leading/trailing separators.
func (p Profile) CleanKey() string {
	return strings.Trim(p.Key, `\`)
}

// LiveKey is the reg.exe path of the key in the current user's hive.
func (p Profile) LiveKey() string {
	return `HKCU\` + p.CleanKey()
}

// LiveKeyLong is the section header form used inside .reg files.
func (p Profile) LiveKeyLong() string {
	return `HKEY_CURRENT_USER\` + p.CleanKey()
}

// MountKey is the reg.exe path of the key inside a mounted snapshot hive.
func (p Profile) MountKey() string {
	return `HKU\` + p.MountName + `\` + p.CleanKey()
}

// MountKeyLong is the section header reg.exe writes when exporting MountKey.
func (p Profile) MountKeyLong() string {
	return `HKEY_USERS\` + p.MountName + `\` + p.CleanKey()
}

// Path resolves an artifact name against OutputDir and makes it absolute.
func (p Profile) Path(name string) string {
	if !filepath.IsAbs(name) && p.OutputDir != "" {
		name = filepath.Join(p.OutputDir, name)
	}
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return name
}
