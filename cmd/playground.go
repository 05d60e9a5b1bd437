package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/fmtplay/internal/bridge"
	"github.com/joescharf/fmtplay/internal/clipboard"
	"github.com/joescharf/fmtplay/internal/engine"
	"github.com/joescharf/fmtplay/internal/llm"
	"github.com/joescharf/fmtplay/internal/permalink"
	"github.com/joescharf/fmtplay/internal/playground"
	"github.com/joescharf/fmtplay/internal/pyproject"
)

// engineFunc builds the formatter engine, replaceable in tests.
var engineFunc = func() engine.Engine {
	return engine.NewCLIEngine(viper.GetString("engine.path"), viper.GetDuration("engine.timeout"))
}

// clipboardFunc builds the clipboard sink, replaceable in tests.
var clipboardFunc = func() *clipboard.Sink {
	return clipboard.New(slog.Default())
}

// configDefaults returns the session defaults from configuration.
func configDefaults() permalink.Session {
	return permalink.Session{
		Source: playground.DefaultTemplate,
		Mode:   viper.GetString("playground.mode"),
		Width:  viper.GetInt("playground.width"),
		Indent: viper.GetInt("playground.indent"),
	}
}

// newPlayground wires the playground from configuration. History problems are
// reported and the playground runs without a store.
func newPlayground() (*playground.Playground, error) {
	codec, err := permalink.NewCodec(viper.GetString("playground.base_url"))
	if err != nil {
		return nil, fmt.Errorf("playground.base_url: %w", err)
	}

	opts := playground.Options{
		Clipboard: clipboardFunc(),
		IssueURL:  viper.GetString("report.issue_url"),
		Logger:    slog.Default(),
	}
	defaults := configDefaults()
	opts.Defaults = &defaults

	s, err := getStore()
	if err != nil {
		ui.Warning("Run history disabled: %v", err)
	} else if s != nil {
		opts.Store = s
	}

	if key := viper.GetString("anthropic.api_key"); key != "" {
		opts.Titles = llm.NewClient(key, viper.GetString("anthropic.model"))
	}

	b := bridge.New(engineFunc(), bridge.WithLogger(slog.Default()))
	return playground.New(b, codec, opts), nil
}

// baseURLPinned reports whether playground.base_url comes from the
// environment or a config file rather than its default.
func baseURLPinned() bool {
	if _, ok := os.LookupEnv("FMTPLAY_PLAYGROUND_BASE_URL"); ok {
		return true
	}
	return viper.InConfig("playground.base_url")
}

// addSessionFlags registers --mode/--width/--indent on cmd.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "Formatter profile: django or jinja")
	cmd.Flags().Int("width", 0, "Line length")
	cmd.Flags().Int("indent", 0, "Indent width")
}

// fileSession reads path ("-" for stdin) into a session. Options come from
// configuration, then [tool.djangofmt] in the nearest pyproject.toml, then
// flags that were set explicitly.
func fileSession(cmd *cobra.Command, path string) (permalink.Session, error) {
	s := configDefaults()

	var (
		data []byte
		err  error
		dir  string
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		dir, _ = os.Getwd()
	} else {
		data, err = os.ReadFile(path)
		dir = filepath.Dir(path)
	}
	if err != nil {
		return s, fmt.Errorf("read %s: %w", path, err)
	}
	s.Source = string(data)

	settings, err := pyproject.Discover(dir)
	if err != nil {
		ui.Warning("Ignoring pyproject.toml: %v", err)
	} else if !settings.Empty() {
		ui.VerboseLog("Using [tool.djangofmt] from %s", settings.Path)
		applyPyproject(&s, settings)
	}

	if cmd.Flags().Changed("mode") {
		s.Mode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("width") {
		s.Width, _ = cmd.Flags().GetInt("width")
	}
	if cmd.Flags().Changed("indent") {
		s.Indent, _ = cmd.Flags().GetInt("indent")
	}
	return s, playground.Validate(s)
}

func applyPyproject(s *permalink.Session, settings *pyproject.Settings) {
	if settings.LineLength != nil {
		s.Width = *settings.LineLength
	}
	if settings.IndentWidth != nil {
		s.Indent = *settings.IndentWidth
	}
	if settings.Profile != nil {
		s.Mode = strings.ToLower(*settings.Profile)
	}
}
