package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/regrescue/internal/regtext"
)

var rewriteFrom string

func init() {
	cmd := newRewriteCmd()
	cmd.Flags().StringVar(&rewriteFrom, "from", "", "Key path to re-root (default: the mounted snapshot key, HKEY_USERS\\<mount>\\<key>)")
	rootCmd.AddCommand(cmd)
}

func newRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <in.reg> [out.reg]",
		Short: "Re-root an exported .reg file at HKCU and duplicate the value",
		Long: `The rewrite command applies the repair's text transformation to a .reg file
exported from a mounted snapshot: every section under the snapshot key is moved
to HKEY_CURRENT_USER and the old value is duplicated under the new name. It
works on any platform.

The output is written as UTF-16LE with a BOM, the encoding reg.exe expects. Without
an output file the result is printed to stdout.

Example:
  regrescue rewrite BleachBraveSouls_FromVSS.reg fixed.reg
  regrescue rewrite export.reg --from "HKEY_USERS\Mounted\Software\KLab\BleachBraveSouls"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(args)
		},
	}
}

type rewriteResult struct {
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	Sections   int    `json:"sections_rerooted"`
	Duplicated int    `json:"values_duplicated"`
	// Text carries the rewritten document when no output file is given.
	Text       string `json:"text,omitempty"`
}

func runRewrite(args []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	text, err := regtext.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", args[0], err)
	}

	from := rewriteFrom
	if from == "" {
		from = p.MountKeyLong()
	}
	printVerbose("Re-rooting %s at %s\n", from, p.LiveKeyLong())
	text, sections := regtext.RewriteRoot(text, from, p.LiveKeyLong())
	text, duplicated := regtext.DuplicateValue(text, p.OldValue, p.NewValue)
	if duplicated == 0 {
		printVerbose("Value %s not found; output only re-rooted\n", p.OldValue)
	}

	res := rewriteResult{Input: args[0], Sections: sections, Duplicated: duplicated}
	if len(args) < 2 {
		if jsonOut {
			res.Text = text
			return printJSON(res)
		}
		fmt.Fprint(os.Stdout, text)
		return nil
	}

	res.Output = args[1]
	out, err := regtext.EncodeUTF16LE(text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(res.Output, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("Re-rooted %d section(s), duplicated %d value(s) into %s\n", sections, duplicated, res.Output)
	return nil
}
