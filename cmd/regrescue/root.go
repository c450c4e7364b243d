package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regrescue/internal/config"
	"github.com/joshuapare/regrescue/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logDir  string

	// Profile flags, shared by every subcommand
	configPath string
	keyFlag    string
	oldFlag    string
	newFlag    string
	cutoffFlag string
	outDirFlag string

	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "regrescue",
	Short: "Recover a corrupted registry value from restore points and shadow copies",
	Long: `regrescue repairs one registry value in the current user's hive by finding
an older copy in System Restore snapshots or Volume Shadow Copies taken before a
cutoff time, and replaying it under a new value name.

Without arguments it runs the repair in simulation mode: a fixed .reg file is
written next to a backup of the live key, and nothing is merged. Use --mode live
to import the result.`,
	Example: `  regrescue
  regrescue --mode live
  regrescue --regfile backup.reg --mode live
  regrescue --config profile.yaml --offline`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFix(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	pf.BoolVar(&jsonOut, "json", false, "Output in JSON format")
	pf.StringVar(&logDir, "log-dir", "", "Also write a dated JSON log into this directory")

	pf.StringVar(&configPath, "config", "", "YAML profile overriding the built-in target")
	pf.StringVar(&keyFlag, "key", "", `Key under HKCU, e.g. "Software\KLab\BleachBraveSouls"`)
	pf.StringVar(&oldFlag, "old-value", "", "Name of the value to recover")
	pf.StringVar(&newFlag, "new-value", "", "Name the recovered value is written under")
	pf.StringVar(&cutoffFlag, "cutoff", "", `Only use snapshots created before this time (RFC 3339 or "2006-01-02 15:04:05" UTC)`)
	pf.StringVar(&outDirFlag, "output-dir", "", "Directory for backup and fixed .reg files")
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v\n", err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	closer, err := logger.Init(logger.Options{Console: os.Stderr, Level: level, LogDir: logDir})
	if err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	closeLog = closer
	return nil
}

// loadProfile builds the target profile from --config and the profile flags.
func loadProfile() (config.Profile, error) {
	p := config.Default()
	if configPath != "" {
		var err error
		if p, err = config.Load(configPath); err != nil {
			return p, err
		}
	}
	if keyFlag != "" {
		p.Key = keyFlag
	}
	if oldFlag != "" {
		p.OldValue = oldFlag
	}
	if newFlag != "" {
		p.NewValue = newFlag
	}
	if outDirFlag != "" {
		p.OutputDir = outDirFlag
	}
	if cutoffFlag != "" {
		t, err := parseCutoff(cutoffFlag)
		if err != nil {
			return p, err
		}
		p.Cutoff = t
	}
	return p, p.Validate()
}

var cutoffLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// parseCutoff accepts RFC 3339 or a zone-less timestamp, which is read as UTC.
func parseCutoff(s string) (time.Time, error) {
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --cutoff %q: want RFC 3339 or \"2006-01-02 15:04:05\"", s)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
