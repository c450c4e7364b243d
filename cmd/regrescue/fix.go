package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/liveedit"
	"github.com/joshuapare/regrescue/internal/logger"
	"github.com/joshuapare/regrescue/internal/regcli"
	"github.com/joshuapare/regrescue/internal/rescue"
	"github.com/joshuapare/regrescue/internal/snapshot"
	"github.com/joshuapare/regrescue/internal/sysexec"
	"github.com/joshuapare/regrescue/internal/winenv"
)

var (
	fixMode           string
	fixRegFile        string
	fixOffline        bool
	fixDirect         bool
	fixNoProbe        bool
	fixSkipAdminCheck bool
)

var errNotWindows = errors.New("this command only runs on Windows")

func init() {
	f := rootCmd.Flags()
	f.StringVar(&fixMode, "mode", "simulation", "simulation writes files only; live also merges into the registry")
	f.StringVar(&fixRegFile, "regfile", "", "Repair this .reg backup instead of searching snapshots, when it holds the key")
	f.BoolVar(&fixOffline, "offline", false, "Read snapshot hives directly instead of mounting them with reg load")
	f.BoolVar(&fixDirect, "direct", false, "In live mode, write the value into HKCU instead of importing the .reg file")
	f.BoolVar(&fixNoProbe, "no-probe", false, "Mount every snapshot hive without checking it offline first")
	rootCmd.PersistentFlags().BoolVar(&fixSkipAdminCheck, "skip-admin-check", false, "Do not require an elevated process")
}

// environment is the OS surface a repair runs against.
type environment struct {
	registry rescue.Registry
	live     rescue.LiveRegistry
	sources  rescue.Discoverer
	identity winenv.Identity
}

// Replaced in tests.
var (
	platformSupported = winenv.Supported
	processIsAdmin    = winenv.IsAdmin
	newEnvironment    = systemEnvironment
)

func systemEnvironment(ctx context.Context, p config.Profile) (environment, error) {
	if err := winenv.EnableHivePrivileges(); err != nil {
		logger.Warn("could not enable backup/restore privileges", "err", err)
	}
	runner := sysexec.ExecRunner{}
	id, err := winenv.Current(ctx, runner)
	if err != nil {
		return environment{}, err
	}
	return environment{
		registry: regcli.New(runner, p.LoadSettle),
		live:     liveedit.Registry{},
		sources:  snapshot.Finder{RestoreRoot: p.RestoreRoot, Runner: runner},
		identity: id,
	}, nil
}

// requireWindows enforces the platform and elevation preconditions.
func requireWindows() error {
	if !platformSupported() {
		return errNotWindows
	}
	if !fixSkipAdminCheck && !processIsAdmin() {
		return errors.New("administrator rights required: run from an elevated prompt or pass --skip-admin-check")
	}
	return nil
}

func runFix(cmd *cobra.Command) error {
	ctx := cmd.Context()
	mode, err := config.ParseMode(fixMode)
	if err != nil {
		return err
	}
	p, err := loadProfile()
	if err != nil {
		return err
	}
	if err := requireWindows(); err != nil {
		return err
	}
	env, err := newEnvironment(ctx, p)
	if err != nil {
		return err
	}
	printVerbose("User %s (%s)\n", env.identity.User, env.identity.SID)
	printInfo("Running in %s mode\n", mode)

	fixer := &rescue.Fixer{
		Profile:  p,
		Registry: env.registry,
		Live:     env.live,
		Sources:  env.sources,
		Identity: env.identity,
		Options: rescue.Options{
			Mode:    mode,
			RegFile: fixRegFile,
			Offline: fixOffline,
			Direct:  fixDirect,
			NoProbe: fixNoProbe,
		},
	}
	res, err := fixer.Run(ctx)
	if jsonOut && res != nil {
		if jerr := printJSON(res); jerr != nil {
			return jerr
		}
	} else if res != nil {
		printResult(res)
	}
	return err
}

func printResult(res *rescue.Result) {
	if res.BackupFile != "" {
		printInfo("Live key backed up to %s\n", res.BackupFile)
	}
	for _, s := range res.Skipped {
		printVerbose("Skipped %s: %s\n", s.Source, s.Reason)
	}
	if res.OutputFile == "" {
		return
	}
	switch {
	case res.Source != nil:
		printInfo("Recovered from %s\n", res.Source)
	case res.RegFile != "":
		printInfo("Recovered from %s\n", res.RegFile)
	}
	printInfo("Fixed REG file: %s\n", res.OutputFile)
	switch {
	case res.Merged:
		printInfo("Merged into the live registry\n")
	case res.Mode == config.ModeLive.String():
		printInfo("Not merged: applying the fix to the live registry failed; import the file manually\n")
	default:
		printInfo("Not merged (simulation mode); rerun with --mode live or import the file manually\n")
	}
	if res.Value != nil {
		printVerbose("Value %s: %s, %d bytes\n", res.Value.Name, res.Value.Type, len(res.Value.Data))
	}
}
