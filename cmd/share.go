package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var shareNoCopy bool

var shareCmd = &cobra.Command{
	Use:   "share FILE",
	Short: "Create a playground link for a template",
	Long: `Encode a template and its formatting options as a playground permalink.

The link is printed and copied to the clipboard unless --no-copy is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return shareRun(cmd, args[0])
	},
}

func init() {
	shareCmd.Flags().BoolVar(&shareNoCopy, "no-copy", false, "Do not copy the link to the clipboard")
	addSessionFlags(shareCmd)
	rootCmd.AddCommand(shareCmd)
}

func shareRun(cmd *cobra.Command, path string) error {
	sess, err := fileSession(cmd, path)
	if err != nil {
		return err
	}
	pg, err := newPlayground()
	if err != nil {
		return err
	}

	link, copied, err := pg.Share(sess, !shareNoCopy)
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Out, link)

	switch {
	case shareNoCopy:
	case copied:
		ui.Success("Copied link to clipboard")
	default:
		ui.Warning("Could not copy link to clipboard")
	}
	return nil
}
