package cmd

import (
	"context"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/fmtplay/internal/output"
	"github.com/joescharf/fmtplay/internal/playground"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-run format and lint whenever a template changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchRun(cmd, args[0])
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", playground.DefaultSettle, "Quiet period after a write before re-running")
	addSessionFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func watchRun(cmd *cobra.Command, path string) error {
	sess, err := fileSession(cmd, path)
	if err != nil {
		return err
	}
	pg, err := newPlayground()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	ui.Info("Watching %s (Ctrl-C to stop)", path)
	return pg.Watch(ctx, path, sess, playground.WatchOptions{Settle: watchSettle}, printWatchEvent)
}

func printWatchEvent(ev playground.WatchEvent) {
	switch {
	case ev.Err != nil:
		ui.Error("%v", ev.Err)
	case ev.Format.Degraded():
		ui.Error("%s", ev.Format.Text)
	default:
		ui.Success("%s formatted in %s, %s lint error(s)",
			ev.Path, output.DurationColor(ev.Format.DurationMs()), output.ErrorCountColor(ev.Lint.ErrorCount))
		if verbose {
			ui.Print(ev.Format.Text)
		}
	}
	if !ev.Lint.Clean() {
		ui.Print(ev.Lint.Plain())
	}
}
