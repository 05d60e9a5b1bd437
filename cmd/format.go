package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/fmtplay/internal/playground"
	"github.com/joescharf/fmtplay/internal/report"
)

var (
	formatWrite bool
	formatCheck bool
)

// errWouldReformat is returned by --check when the file is not formatted.
var errWouldReformat = errors.New("file would be reformatted")

var formatCmd = &cobra.Command{
	Use:   "format FILE",
	Short: "Format a template and print the result",
	Long: `Format a Django or Jinja template with djangofmt.

The result is printed to stdout. Use --write to rewrite the file in place,
or --check to print a diff and fail when the file is not formatted.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatRun(cmd, args[0])
	},
}

func init() {
	formatCmd.Flags().BoolVarP(&formatWrite, "write", "w", false, "Rewrite the file in place")
	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "Fail if the file would be reformatted")
	addSessionFlags(formatCmd)
	rootCmd.AddCommand(formatCmd)
}

func formatRun(cmd *cobra.Command, path string) error {
	sess, err := fileSession(cmd, path)
	if err != nil {
		return err
	}
	pg, err := newPlayground()
	if err != nil {
		return err
	}

	ctx := context.Background()
	res, err := pg.Format(ctx, playground.OriginCLI, sess)
	if err != nil {
		return err
	}
	if res.Degraded() {
		ui.Error("%s", res.Text)
		return fmt.Errorf("format %s failed", path)
	}
	ui.VerboseLog("%s (%s, width %d, indent %d)", res.Summary(), sess.Mode, sess.Width, sess.Indent)

	switch {
	case formatCheck:
		diff, err := report.Diff(sess.Source, res.Text)
		if err != nil {
			return err
		}
		if diff == "" {
			ui.Success("%s is formatted", path)
			return nil
		}
		ui.Print(diff)
		return fmt.Errorf("%s: %w", path, errWouldReformat)

	case formatWrite && path != "-":
		if res.Text == sess.Source {
			ui.Info("%s unchanged", path)
			return nil
		}
		if dryRun {
			ui.DryRunMsg("Would rewrite %s", path)
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(res.Text), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		ui.Success("Formatted %s in %.1fms", path, res.DurationMs())
		return nil

	default:
		fmt.Fprint(ui.Out, res.Text)
		return nil
	}
}
