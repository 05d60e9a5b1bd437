package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/fmtplay/internal/permalink"
)

var openOutput string

var openCmd = &cobra.Command{
	Use:   "open URL",
	Short: "Decode a playground link",
	Long: `Decode a playground permalink and print the template it carries.

Use -o to write the template to a file instead. The formatting options are
reported alongside.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openRun(args[0])
	},
}

func init() {
	openCmd.Flags().StringVarP(&openOutput, "output", "o", "", "Write the template to this file")
	rootCmd.AddCommand(openCmd)
}

func openRun(link string) error {
	sess, ok := permalink.DecodeURL(link, configDefaults())
	if !ok {
		return fmt.Errorf("link does not contain a valid playground session")
	}
	ui.VerboseLog("Profile %s, line length %d, indent width %d", sess.Mode, sess.Width, sess.Indent)

	if openOutput == "" {
		fmt.Fprint(ui.Out, sess.Source)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would write %d bytes to %s", len(sess.Source), openOutput)
		return nil
	}
	if err := os.WriteFile(openOutput, []byte(sess.Source), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", openOutput, err)
	}
	ui.Success("Wrote %s (profile %s, line length %d, indent width %d)", openOutput, sess.Mode, sess.Width, sess.Indent)
	return nil
}
