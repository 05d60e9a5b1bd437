package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joescharf/fmtplay/internal/playground"
)

var (
	reportTitle         string
	reportSuggestTitle  bool
	reportOpen          bool
	reportFormattedPath string
)

var reportCmd = &cobra.Command{
	Use:   "report FILE",
	Short: "Prepare a djangofmt bug report for a template",
	Long: `Format a template and build an issue report containing the diff of
what the formatter changed and a playground link reproducing the input.

The report body is printed. Use --open to open the prefilled issue page in
a browser. With an Anthropic API key configured, --suggest-title asks the
model for a title.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd, args[0])
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "Issue title")
	reportCmd.Flags().BoolVar(&reportSuggestTitle, "suggest-title", false, "Ask the LLM for an issue title")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "Open the issue page in a browser")
	reportCmd.Flags().StringVar(&reportFormattedPath, "formatted", "", "Use this file as the formatter output instead of running the formatter")
	addSessionFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportRun(cmd *cobra.Command, path string) error {
	sess, err := fileSession(cmd, path)
	if err != nil {
		return err
	}
	pg, err := newPlayground()
	if err != nil {
		return err
	}

	req := playground.ReportRequest{
		Session:      sess,
		Title:        reportTitle,
		SuggestTitle: reportSuggestTitle,
		Origin:       playground.OriginCLI,
	}
	if reportFormattedPath != "" {
		data, err := os.ReadFile(reportFormattedPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", reportFormattedPath, err)
		}
		formatted := string(data)
		req.Formatted = &formatted
	}

	rep, err := pg.Report(context.Background(), req)
	if err != nil {
		return err
	}
	switch {
	case rep.Failed():
		ui.Warning("The formatter failed on %s: %s", path, rep.EngineError)
	case rep.Empty():
		ui.Warning("The formatter made no changes to %s", path)
	}
	ui.Print(rep.Body)

	if !reportOpen {
		ui.VerboseLog("Issue URL: %s", rep.IssueURL)
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would open %s", rep.IssueURL)
		return nil
	}
	if err := openURL(rep.IssueURL); err != nil {
		ui.Warning("Failed to open browser: %v", err)
		ui.Info("Please open manually: %s", rep.IssueURL)
	}
	return nil
}

// openURL opens url in the default browser.
func openURL(url string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "linux":
		c = exec.Command("xdg-open", url)
	case "windows":
		c = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("cannot open browser on %s", runtime.GOOS)
	}
	return c.Start()
}
