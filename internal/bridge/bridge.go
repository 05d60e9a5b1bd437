// Package bridge runs the formatter and linter for the playground and turns
// every outcome, including engine failures, into something displayable.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/joescharf/fmtplay/internal/engine"
)

// Kind distinguishes a real engine result from a degraded display value.
type Kind string

const (
	KindOK       Kind = "ok"
	KindDegraded Kind = "degraded"
)

// ErrorPrefix starts the text of every degraded result.
const ErrorPrefix = "Error: "

// FormatResult is what the output pane shows after a format run.
type FormatResult struct {
	Kind     Kind
	Text     string
	Duration time.Duration // engine call only; zero when degraded
}

// Degraded reports whether the engine failed.
func (r FormatResult) Degraded() bool { return r.Kind == KindDegraded }

// DurationMs returns the duration in fractional milliseconds.
func (r FormatResult) DurationMs() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}

// Summary is the footer line shown under the output.
func (r FormatResult) Summary() string {
	if r.Degraded() {
		return "Format failed"
	}
	return fmt.Sprintf("Formatted in %.1fms!", r.DurationMs())
}

// LintResult is what the diagnostics panel shows after a lint run.
type LintResult struct {
	Kind       Kind
	RawOutput  string // ANSI-colored; empty means no issues
	ErrorCount int
}

// Degraded reports whether the linter itself failed.
func (r LintResult) Degraded() bool { return r.Kind == KindDegraded }

// Clean reports the canonical "no issues" state.
func (r LintResult) Clean() bool {
	return r.Kind == KindOK && r.ErrorCount == 0 && r.RawOutput == ""
}

// Plain returns the diagnostics without ANSI escape sequences.
func (r LintResult) Plain() string { return ansi.Strip(r.RawOutput) }

// Bridge invokes an Engine on behalf of the playground.
type Bridge struct {
	engine engine.Engine
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock replaces the wall clock used for timing.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// WithLogger sets the logger engine failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// New returns a Bridge calling e.
func New(e engine.Engine, opts ...Option) *Bridge {
	b := &Bridge{engine: e, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NormalizeMode lowercases a profile name for the engine.
func NormalizeMode(mode string) string {
	return strings.ToLower(mode)
}

// RunFormat formats source. It never fails: an engine error becomes a
// degraded result whose text is "Error: <message>" with zero duration.
func (b *Bridge) RunFormat(ctx context.Context, source string, width, indent int, mode string) FormatResult {
	mode = NormalizeMode(mode)

	start := b.now()
	out, err := b.engine.Format(ctx, source, width, indent, mode)
	elapsed := b.now().Sub(start)

	if err != nil {
		b.log.Warn("format failed", "mode", mode, "width", width, "indent", indent, "error", err)
		return FormatResult{Kind: KindDegraded, Text: ErrorPrefix + err.Error()}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return FormatResult{Kind: KindOK, Text: out, Duration: elapsed}
}

// RunLint lints source. It never fails: an engine error yields one error and
// synthetic text, so the indicator never keeps a stale count.
func (b *Bridge) RunLint(ctx context.Context, source, mode string) LintResult {
	mode = NormalizeMode(mode)

	lo, err := b.engine.Lint(ctx, source, mode)
	if err != nil {
		b.log.Warn("lint failed", "mode", mode, "error", err)
		return LintResult{Kind: KindDegraded, RawOutput: ErrorPrefix + err.Error(), ErrorCount: 1}
	}
	if strings.TrimSpace(lo.Output) == "" {
		return LintResult{Kind: KindOK}
	}
	count := lo.ErrorCount
	if count < 0 {
		count = 0
	}
	return LintResult{Kind: KindOK, RawOutput: lo.Output, ErrorCount: count}
}
