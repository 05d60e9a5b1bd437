// Package playground ties the formatter bridge, permalink codec, issue
// reporter and run history together. The CLI, HTTP API and MCP server all
// drive the playground through this type.
package playground

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/fmtplay/internal/bridge"
	"github.com/joescharf/fmtplay/internal/clipboard"
	"github.com/joescharf/fmtplay/internal/models"
	"github.com/joescharf/fmtplay/internal/permalink"
	"github.com/joescharf/fmtplay/internal/report"
	"github.com/joescharf/fmtplay/internal/store"
)

// DefaultTemplate is shown when no session was restored from a link.
const DefaultTemplate = `{% extends "base.html" %}

{% block content %}
<div class="badly-formatted"><h1>Welcome {{ user.username }}</h1>
  </div>
{% endblock %}
`

// Default formatting options.
const (
	DefaultMode   = "django"
	DefaultWidth  = 120
	DefaultIndent = 4
)

// DefaultTitle is used when a title was requested but could not be suggested.
const DefaultTitle = "Unexpected formatter output"

// Run origins recorded in history.
const (
	OriginCLI   = "cli"
	OriginAPI   = "api"
	OriginMCP   = "mcp"
	OriginWatch = "watch"
)

var (
	ErrInvalidWidth  = errors.New("width must be greater than zero")
	ErrInvalidIndent = errors.New("indent must not be negative")
)

// DefaultSession returns the session a fresh playground starts with.
func DefaultSession() permalink.Session {
	return permalink.Session{
		Source: DefaultTemplate,
		Mode:   DefaultMode,
		Width:  DefaultWidth,
		Indent: DefaultIndent,
	}
}

// Validate checks the formatting options of s. Mode is not checked; unknown
// profiles are left to the engine.
func Validate(s permalink.Session) error {
	if s.Width <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, s.Width)
	}
	if s.Indent < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndent, s.Indent)
	}
	return nil
}

// TitleSuggester proposes an issue title for a formatter bug report.
type TitleSuggester interface {
	SuggestTitle(ctx context.Context, source, diff string) (string, error)
}

// Options holds the optional collaborators of a Playground.
type Options struct {
	Store     store.Store
	Clipboard *clipboard.Sink
	Titles    TitleSuggester
	IssueURL  string
	Defaults  *permalink.Session
	Logger    *slog.Logger
}

// Playground runs formatter sessions.
type Playground struct {
	bridge   *bridge.Bridge
	codec    *permalink.Codec
	reporter *report.Reporter
	store    store.Store
	clip     *clipboard.Sink
	titles   TitleSuggester
	defaults permalink.Session
	log      *slog.Logger
	now      func() time.Time
}

// New returns a Playground running engines through b and sharing links
// through codec.
func New(b *bridge.Bridge, codec *permalink.Codec, opts Options) *Playground {
	p := &Playground{
		bridge:   b,
		codec:    codec,
		reporter: report.NewReporter(codec, opts.IssueURL),
		store:    opts.Store,
		clip:     opts.Clipboard,
		titles:   opts.Titles,
		defaults: DefaultSession(),
		log:      opts.Logger,
		now:      time.Now,
	}
	if opts.Defaults != nil {
		p.defaults = *opts.Defaults
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Defaults returns the session used when nothing was restored.
func (p *Playground) Defaults() permalink.Session { return p.defaults }

// Codec returns the permalink codec.
func (p *Playground) Codec() *permalink.Codec { return p.codec }

// WithBase returns a copy of p whose permalinks and reports link to baseURL.
// Everything else, including the history store, is shared.
func (p *Playground) WithBase(baseURL string) (*Playground, error) {
	codec, err := permalink.NewCodec(baseURL)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.codec = codec
	cp.reporter = p.reporter.WithCodec(codec)
	return &cp, nil
}

// Format formats s.Source with the options of s. The only error is an
// invalid option; engine failures come back as a degraded result.
func (p *Playground) Format(ctx context.Context, origin string, s permalink.Session) (bridge.FormatResult, error) {
	if err := Validate(s); err != nil {
		return bridge.FormatResult{}, err
	}
	res := p.bridge.RunFormat(ctx, s.Source, s.Width, s.Indent, s.Mode)

	run := p.newRun(models.RunKindFormat, origin, s)
	run.Duration = res.Duration
	if res.Degraded() {
		run.Outcome = models.RunOutcomeDegraded
		run.Message = res.Text
	}
	p.record(ctx, run)
	return res, nil
}

// Lint lints s.Source under s.Mode.
func (p *Playground) Lint(ctx context.Context, origin string, s permalink.Session) bridge.LintResult {
	start := p.now()
	res := p.bridge.RunLint(ctx, s.Source, s.Mode)

	run := p.newRun(models.RunKindLint, origin, s)
	run.Duration = p.now().Sub(start)
	run.ErrorCount = res.ErrorCount
	if res.Degraded() {
		run.Outcome = models.RunOutcomeDegraded
		run.Message = res.RawOutput
	}
	p.record(ctx, run)
	return res
}

// Share encodes s as a permalink. With toClipboard the link is also placed
// on the clipboard; copied reports whether that worked.
func (p *Playground) Share(s permalink.Session, toClipboard bool) (link string, copied bool, err error) {
	link, err = p.codec.Encode(s)
	if err != nil {
		return "", false, err
	}
	if toClipboard {
		copied = p.clip.Copy(link)
	}
	return link, copied, nil
}

// Restore decodes a permalink query. Missing or corrupt links give the
// defaults and false.
func (p *Playground) Restore(rawQuery string) (permalink.Session, bool) {
	return permalink.DecodeSession(rawQuery, p.defaults)
}

// ReportRequest describes a bug report to build.
type ReportRequest struct {
	Session permalink.Session
	// Formatted is the formatter output to diff against. When nil the
	// source is formatted first.
	Formatted *string
	Title     string
	// SuggestTitle asks the TitleSuggester for a title when Title is empty.
	SuggestTitle bool
	Origin       string
}

// Report builds an issue report for req. When the source has to be
// formatted first and the engine fails, the report carries the error text
// instead of a diff.
func (p *Playground) Report(ctx context.Context, req ReportRequest) (*report.IssueReport, error) {
	if req.Formatted != nil {
		return p.reportDiff(ctx, req, *req.Formatted)
	}
	res, err := p.Format(ctx, req.Origin, req.Session)
	if err != nil {
		return nil, err
	}
	if res.Degraded() {
		title := p.reportTitle(ctx, req, res.Text)
		return p.reporter.BuildFailure(req.Session, res.Text, title)
	}
	return p.reportDiff(ctx, req, res.Text)
}

func (p *Playground) reportDiff(ctx context.Context, req ReportRequest, formatted string) (*report.IssueReport, error) {
	title := req.Title
	if title == "" && req.SuggestTitle {
		diff, err := report.Diff(req.Session.Source, formatted)
		if err != nil {
			return nil, err
		}
		title = p.suggestTitle(ctx, req.Session.Source, diff)
	}
	return p.reporter.Build(req.Session, formatted, title)
}

func (p *Playground) reportTitle(ctx context.Context, req ReportRequest, detail string) string {
	if req.Title != "" || !req.SuggestTitle {
		return req.Title
	}
	return p.suggestTitle(ctx, req.Session.Source, detail)
}

// suggestTitle asks the TitleSuggester for a title given the source and the
// formatter's diff or error text.
func (p *Playground) suggestTitle(ctx context.Context, source, detail string) string {
	if p.titles == nil {
		return DefaultTitle
	}
	title, err := p.titles.SuggestTitle(ctx, source, detail)
	if err != nil || title == "" {
		if err != nil {
			p.log.Warn("suggest title failed", "error", err)
		}
		return DefaultTitle
	}
	return title
}

// Recent lists the newest recorded runs. Without a history store it returns
// nothing.
func (p *Playground) Recent(ctx context.Context, limit int) ([]*models.Run, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.ListRuns(ctx, store.RunListFilter{Limit: limit})
}

func (p *Playground) newRun(kind models.RunKind, origin string, s permalink.Session) *models.Run {
	return &models.Run{
		Kind:       kind,
		Origin:     origin,
		Mode:       bridge.NormalizeMode(s.Mode),
		Width:      s.Width,
		Indent:     s.Indent,
		SourceSize: len(s.Source),
		Outcome:    models.RunOutcomeOK,
	}
}

// record stores run metadata. History is best effort and never fails a run.
func (p *Playground) record(ctx context.Context, run *models.Run) {
	if p.store == nil {
		return
	}
	if run.Duration < 0 {
		run.Duration = 0
	}
	if err := p.store.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		p.log.Warn("record run failed", "kind", run.Kind, "error", err)
	}
}

// Stats summarizes recorded runs per kind.
func (p *Playground) Stats(ctx context.Context) ([]store.RunStats, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.Stats(ctx)
}
