package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/fmtplay/internal/clipboard"
	"github.com/joescharf/fmtplay/internal/health"
	"github.com/joescharf/fmtplay/internal/output"
	"github.com/joescharf/fmtplay/internal/permalink"
)

// smokeTemplate is formatted once to check the engine.
const smokeTemplate = "{% if ok %}<p>ok</p>{% endif %}\n"

const smokeTimeout = 10 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local setup",
	Long: `Check that djangofmt is installed and working, that run history and the
clipboard are usable, and that the permalink base URL is valid.

Prints a 0-100 health score and fails when the playground cannot format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorRun()
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// gatherEnvironment checks the configured engine, store, clipboard and links.
func gatherEnvironment(ctx context.Context) *health.Environment {
	env := &health.Environment{
		HistoryEnabled:     viper.GetBool("history.enabled"),
		ClipboardAvailable: clipboard.Available(),
		ConfigFile:         viper.ConfigFileUsed() != "",
	}

	if _, err := exec.LookPath(viper.GetString("engine.path")); err == nil {
		env.EngineFound = true
	}
	ctx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()
	start := time.Now()
	if _, err := engineFunc().Format(ctx, smokeTemplate, 120, 4, "django"); err != nil {
		env.EngineError = err.Error()
	} else {
		env.EngineWorks = true
		env.EngineFound = true
		env.EngineLatency = time.Since(start)
	}

	if env.HistoryEnabled {
		if _, err := getStore(); err != nil {
			env.HistoryError = err.Error()
		} else {
			env.HistoryOK = true
		}
	}

	_, err := permalink.NewCodec(viper.GetString("playground.base_url"))
	env.BaseURLValid = err == nil
	if env.BaseURLValid && baseURLPinned() {
		env.BasePortMismatch = basePortMismatch(viper.GetString("playground.base_url"), viper.GetInt("port"))
	}
	return env
}

// basePortMismatch describes a local base URL that does not point at the
// serve port. Remote hosts are assumed to sit behind a proxy.
func basePortMismatch(baseURL string, port int) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
	default:
		return ""
	}
	basePort := u.Port()
	if basePort == "" {
		basePort = "80"
		if u.Scheme == "https" {
			basePort = "443"
		}
	}
	if basePort == strconv.Itoa(port) {
		return ""
	}
	return fmt.Sprintf("playground.base_url port %s differs from serve port %d", basePort, port)
}

func scoreColor(score, outOf int) string {
	s := fmt.Sprintf("%d/%d", score, outOf)
	switch {
	case score == outOf:
		return output.Green(s)
	case score > 0:
		return output.Yellow(s)
	default:
		return output.Red(s)
	}
}

func doctorRun() error {
	env := gatherEnvironment(context.Background())
	h := health.NewScorer().Score(env)

	engineDetail := viper.GetString("engine.path")
	if env.EngineWorks {
		engineDetail += fmt.Sprintf(" (%.1fms)", float64(env.EngineLatency.Microseconds())/1000)
	}
	historyDetail := viper.GetString("db_path")
	if !env.HistoryEnabled {
		historyDetail = "disabled"
	}

	table := ui.Table([]string{"Check", "Score", "Detail"})
	rows := [][]string{
		{"Engine", scoreColor(h.Engine, 40), engineDetail},
		{"Speed", scoreColor(h.Speed, 10), ""},
		{"History", scoreColor(h.History, 20), historyDetail},
		{"Clipboard", scoreColor(h.Clipboard, 10), strconv.FormatBool(env.ClipboardAvailable)},
		{"Links", scoreColor(h.Links, 15), viper.GetString("playground.base_url")},
		{"Config", scoreColor(h.Config, 5), viper.ConfigFileUsed()},
	}
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, p := range h.Problems {
		ui.Warning("%s", p)
	}
	if !h.Healthy() {
		ui.Error("Health %d/100", h.Total)
		return fmt.Errorf("playground cannot format with this setup")
	}
	ui.Success("Health %d/100", h.Total)
	return nil
}
