package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/fmtplay/internal/models"
	"github.com/joescharf/fmtplay/internal/output"
	"github.com/joescharf/fmtplay/internal/store"
)

var (
	historyLimit  int
	historyKind   string
	historyFormat string
	historyStats  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded format and lint runs",
	Long: `Show the run history: kind, profile, options, duration, lint errors and
outcome of recent engine calls. Template sources are never recorded.

Output formats: table (default), json, csv, markdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyRun()
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs, keeping the newest history.keep",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		return historyPruneRun(keep)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs (0 for all)")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Filter by kind: format, lint")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "Output format: table, json, csv, markdown")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Show per-kind totals instead of runs")
	historyPruneCmd.Flags().Int("keep", 0, "Runs to keep (default history.keep)")
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyStore() (store.Store, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("run history is disabled (history.enabled=false)")
	}
	return s, nil
}

func historyRun() error {
	s, err := historyStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if historyStats {
		stats, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		return printStats(stats)
	}

	filter := store.RunListFilter{Limit: historyLimit}
	switch historyKind {
	case "":
	case string(models.RunKindFormat), string(models.RunKindLint):
		filter.Kind = models.RunKind(historyKind)
	default:
		return fmt.Errorf("unknown kind: %s (use: format, lint)", historyKind)
	}

	runs, err := s.ListRuns(ctx, filter)
	if err != nil {
		return err
	}
	return printRuns(runs)
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func printRuns(runs []*models.Run) error {
	switch historyFormat {
	case "table":
		if len(runs) == 0 {
			ui.Info("No runs recorded")
			return nil
		}
		table := ui.Table([]string{"When", "Kind", "Origin", "Profile", "Width", "Indent", "Size", "Duration", "Errors", "Outcome"})
		for _, r := range runs {
			_ = table.Append([]string{
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				string(r.Kind),
				r.Origin,
				r.Mode,
				strconv.Itoa(r.Width),
				strconv.Itoa(r.Indent),
				strconv.Itoa(r.SourceSize),
				output.DurationColor(durationMs(r.Duration)),
				strconv.Itoa(r.ErrorCount),
				output.OutcomeColor(string(r.Outcome)),
			})
		}
		return table.Render()
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"ID", "Kind", "Origin", "Mode", "Width", "Indent", "Size", "DurationMs", "Errors", "Outcome", "Created"})
		for _, r := range runs {
			_ = w.Write([]string{r.ID, string(r.Kind), r.Origin, r.Mode,
				strconv.Itoa(r.Width), strconv.Itoa(r.Indent), strconv.Itoa(r.SourceSize),
				strconv.FormatFloat(durationMs(r.Duration), 'f', 3, 64),
				strconv.Itoa(r.ErrorCount), string(r.Outcome), r.CreatedAt.UTC().Format(time.RFC3339)})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Runs")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Kind | Profile | Width | Indent | Duration | Errors | Outcome |")
		fmt.Fprintln(ui.Out, "|------|---------|-------|--------|----------|--------|---------|")
		for _, r := range runs {
			fmt.Fprintf(ui.Out, "| %s | %s | %d | %d | %.1fms | %d | %s |\n",
				r.Kind, r.Mode, r.Width, r.Indent, durationMs(r.Duration), r.ErrorCount, r.Outcome)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", historyFormat)
	}
}

func printStats(stats []store.RunStats) error {
	if len(stats) == 0 {
		ui.Info("No runs recorded")
		return nil
	}
	table := ui.Table([]string{"Kind", "Runs", "Degraded", "Avg duration"})
	for _, st := range stats {
		_ = table.Append([]string{
			string(st.Kind),
			strconv.Itoa(st.Total),
			strconv.Itoa(st.Degraded),
			output.DurationColor(st.AvgDuration),
		})
	}
	return table.Render()
}

func historyPruneRun(keep int) error {
	if keep <= 0 {
		keep = viper.GetInt("history.keep")
	}
	s, err := historyStore()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete all but the newest %d runs", keep)
		return nil
	}
	n, err := s.PruneRuns(context.Background(), keep)
	if err != nil {
		return err
	}
	ui.Success("Deleted %d run(s), kept the newest %d", n, keep)
	return nil
}
