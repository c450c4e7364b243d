package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regrescue/internal/snapshot"
)

func init() {
	rootCmd.AddCommand(newSnapshotsCmd())
}

func newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List restore points and shadow copies with their cutoff verdict",
		Long: `The snapshots command lists every System Restore snapshot and Volume Shadow
Copy the repair would consider, whether it was created before the cutoff, and
whether it holds a hive for the current user. Nothing is mounted.

Example:
  regrescue snapshots
  regrescue snapshots --cutoff "2025-10-04 09:10:16" --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(cmd)
		},
	}
}

type snapshotRow struct {
	snapshot.Source
	Usable bool   `json:"usable"`
	Reason string `json:"reason,omitempty"`
}

func runSnapshots(cmd *cobra.Command) error {
	ctx := cmd.Context()
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

	var all []snapshot.Source
	rps, err := env.sources.RestorePoints(ctx, env.identity.SID)
	if err != nil {
		printVerbose("Restore points unavailable: %v\n", err)
	}
	all = append(all, rps...)
	shadows, warnings, err := env.sources.Shadows(ctx, env.identity.User)
	if err != nil {
		printVerbose("Shadow copies unavailable: %v\n", err)
	}
	for _, w := range warnings {
		printVerbose("Warning: %s\n", w)
	}
	all = append(all, shadows...)

	rows := verdicts(all, p.Cutoff)
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		printInfo("No restore points or shadow copies found\n")
		return nil
	}
	if quiet {
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCREATED (UTC)\tUSABLE\tSOURCE\tNOTE")
	for _, r := range rows {
		created := "-"
		if !r.Created.IsZero() {
			created = r.Created.UTC().Format("2006-01-02 15:04:05")
		}
		usable := "no"
		if r.Usable {
			usable = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Kind, created, usable, r.Label, r.Reason)
	}
	return w.Flush()
}

// verdicts applies the cutoff and hive checks the repair would, in the order
// it would try the sources.
func verdicts(sources []snapshot.Source, cutoff time.Time) []snapshotRow {
	var rows []snapshotRow
	for _, kind := range []snapshot.Kind{snapshot.RestorePoint, snapshot.Shadow} {
		var ofKind []snapshot.Source
		for _, s := range sources {
			if s.Kind == kind {
				ofKind = append(ofKind, s)
			}
		}
		kept, skipped := snapshot.BeforeCutoff(ofKind, cutoff)
		snapshot.SortNewestFirst(kept)
		for _, s := range kept {
			row := snapshotRow{Source: s, Usable: s.HivePath != ""}
			if !row.Usable {
				row.Reason = "no hive for this user"
			}
			rows = append(rows, row)
		}
		for _, s := range skipped {
			rows = append(rows, snapshotRow{Source: s.Source, Reason: s.Reason})
		}
	}
	return rows
}
