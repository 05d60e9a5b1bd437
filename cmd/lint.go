package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joescharf/fmtplay/internal/output"
	"github.com/joescharf/fmtplay/internal/playground"
)

var lintCmd = &cobra.Command{
	Use:   "lint FILE",
	Short: "Lint a template and print diagnostics",
	Long: `Run djangofmt check on a template.

Diagnostics are printed with colors on a terminal and as plain text
otherwise (or with --no-color). The command fails when any error is found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lintRun(cmd, args[0])
	},
}

func init() {
	addSessionFlags(lintCmd)
	rootCmd.AddCommand(lintCmd)
}

func lintRun(cmd *cobra.Command, path string) error {
	sess, err := fileSession(cmd, path)
	if err != nil {
		return err
	}
	pg, err := newPlayground()
	if err != nil {
		return err
	}

	res := pg.Lint(context.Background(), playground.OriginCLI, sess)
	if res.Clean() {
		ui.Success("No issues found in %s", path)
		return nil
	}

	if color.NoColor {
		ui.Print(res.Plain())
	} else {
		ui.Print(res.RawOutput)
	}
	ui.Error("%s lint error(s) in %s", output.ErrorCountColor(res.ErrorCount), path)
	return fmt.Errorf("%d lint error(s) in %s", res.ErrorCount, path)
}
