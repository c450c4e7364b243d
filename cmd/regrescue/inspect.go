package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regrescue/internal/hive"
)

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <hive>",
		Short: "Check an offline hive file for the target value",
		Long: `The inspect command reads a hive file such as a copied NTUSER.DAT or a
restore point snapshot and reports whether it holds the old and new values of
the target key. The file is read directly; nothing is mounted.

Example:
  regrescue inspect NTUSER.DAT
  regrescue inspect _REGISTRY_USER_NTUSER_S-1-5-21-... --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args)
		},
	}
}

type inspectValue struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Type    string `json:"type,omitempty"`
	Size    int    `json:"size,omitempty"`
	Preview string `json:"preview,omitempty"`
}

type inspectReport struct {
	Hive      string         `json:"hive"`
	Key       string         `json:"key"`
	KeyExists bool           `json:"key_exists"`
	Dirty     bool           `json:"dirty"`
	Values    []inspectValue `json:"values"`
}

const previewBytes = 16

func runInspect(args []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	printVerbose("Opening hive: %s\n", args[0])
	h, err := hive.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open hive: %w", err)
	}
	defer h.Close()

	report := inspectReport{Hive: args[0], Key: p.CleanKey(), Dirty: h.Dirty()}
	k, err := h.Find(p.CleanKey())
	switch {
	case err == nil:
		report.KeyExists = true
	case !errors.Is(err, hive.ErrNotFound):
		return err
	}
	for _, name := range []string{p.OldValue, p.NewValue} {
		iv := inspectValue{Name: name}
		if report.KeyExists {
			v, err := k.Value(name)
			if err != nil && !errors.Is(err, hive.ErrNotFound) {
				return err
			}
			if err == nil {
				iv.Present = true
				iv.Type = v.Type.String()
				iv.Size = len(v.Data)
				iv.Preview = hex.EncodeToString(v.Data[:min(len(v.Data), previewBytes)])
			}
		}
		report.Values = append(report.Values, iv)
	}

	if jsonOut {
		return printJSON(report)
	}
	if report.Dirty {
		printInfo("Warning: hive has unreplayed log data; values may be stale\n")
	}
	if !report.KeyExists {
		printInfo("Key %s: not present\n", report.Key)
		return nil
	}
	printInfo("Key %s: present\n", report.Key)
	for _, v := range report.Values {
		if !v.Present {
			printInfo("  %s: not present\n", v.Name)
			continue
		}
		printInfo("  %s: %s, %d bytes, starts %s\n", v.Name, v.Type, v.Size, v.Preview)
	}
	return nil
}
