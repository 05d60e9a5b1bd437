// Package report prepares bug reports for the formatter: a minimal diff of
// what the formatter changed plus a permalink reproducing the input.
package report

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"text/template"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/joescharf/fmtplay/internal/permalink"
)

// ContextLines is the number of unchanged lines kept around each change.
const ContextLines = 3

// DefaultIssueURL is the issue-creation page reports are sent to.
const DefaultIssueURL = "https://github.com/UnknownPlatypus/djangofmt/issues/new"

// IssueReport is a ready-to-paste bug report.
type IssueReport struct {
	Title     string
	Diff      string
	Permalink string
	Body      string
	IssueURL  string
	// EngineError is the formatter's error text when it failed on the
	// input. Diff is empty then.
	EngineError string
}

// Empty reports whether the formatter ran and changed nothing.
func (r *IssueReport) Empty() bool { return r.Diff == "" && r.EngineError == "" }

// Failed reports whether the formatter failed on the input.
func (r *IssueReport) Failed() bool { return r.EngineError != "" }

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(,\d+)? \+\d+(,\d+)? @@`)

// Diff returns a unified line diff of source against formatted with the file
// header and hunk markers removed, so only ' ', '-' and '+' lines remain.
// Identical inputs give an empty string.
func Diff(source, formatted string) (string, error) {
	if source == formatted {
		return "", nil
	}
	raw, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(source),
		B:        difflib.SplitLines(formatted),
		FromFile: "original",
		ToFile:   "formatted",
		Context:  ContextLines,
	})
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}

	lines := strings.Split(raw, "\n")
	// The first two lines are always the ---/+++ file header.
	if len(lines) >= 2 && strings.HasPrefix(lines[0], "--- ") && strings.HasPrefix(lines[1], "+++ ") {
		lines = lines[2:]
	}
	kept := lines[:0]
	for _, line := range lines {
		if hunkHeaderRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return trimBlankLines(kept), nil
}

// trimBlankLines joins lines after dropping whitespace-only lines at either end.
func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

const bodyTemplate = `{{ if .Title }}### {{ .Title }}

{{ end }}**Describe the bug**

<!-- What did you expect the formatter to do instead? -->

**Playground**

[Reproduce this in the playground]({{ .Permalink }})

- Profile: ` + "`{{ .Mode }}`" + `
- Line length: {{ .Width }}
- Indent width: {{ .Indent }}

{{ if .EngineError }}**Formatter error**

` + "```" + `
{{ .EngineError }}
` + "```" + `
{{ else }}**Formatter changes**
{{ if .Diff }}
` + "```diff" + `
{{ .Diff }}
` + "```" + `
{{ else }}
The formatter made no changes.
{{ end }}{{ end }}`

var bodyTmpl = template.Must(template.New("report").Parse(bodyTemplate))

type bodyData struct {
	Title       string
	Permalink   string
	Mode        string
	Width       int
	Indent      int
	Diff        string
	EngineError string
}

// Reporter builds issue reports.
type Reporter struct {
	codec    *permalink.Codec
	issueURL string
}

// NewReporter returns a Reporter linking to sessions through codec and
// opening issues at issueURL (DefaultIssueURL when empty).
func NewReporter(codec *permalink.Codec, issueURL string) *Reporter {
	if issueURL == "" {
		issueURL = DefaultIssueURL
	}
	return &Reporter{codec: codec, issueURL: issueURL}
}

// WithCodec returns a Reporter linking through codec and opening issues at
// the same page as r.
func (r *Reporter) WithCodec(codec *permalink.Codec) *Reporter {
	return &Reporter{codec: codec, issueURL: r.issueURL}
}

// Build composes the report for session s whose formatter output was
// formatted. The permalink encodes the original source so the report
// reproduces the input. An unchanged format is a valid, empty-diff report.
func (r *Reporter) Build(s permalink.Session, formatted, title string) (*IssueReport, error) {
	diff, err := Diff(s.Source, formatted)
	if err != nil {
		return nil, err
	}
	return r.compose(s, bodyData{Title: title, Diff: diff})
}

// BuildFailure composes the report for session s on which the formatter
// failed with message. The body carries the error instead of a diff.
func (r *Reporter) BuildFailure(s permalink.Session, message, title string) (*IssueReport, error) {
	return r.compose(s, bodyData{Title: title, EngineError: strings.TrimSpace(message)})
}

func (r *Reporter) compose(s permalink.Session, data bodyData) (*IssueReport, error) {
	link, err := r.codec.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("build permalink: %w", err)
	}
	data.Permalink = link
	data.Mode = s.Mode
	data.Width = s.Width
	data.Indent = s.Indent

	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	body := buf.String()

	issueURL, err := IssueURL(r.issueURL, body)
	if err != nil {
		return nil, err
	}

	return &IssueReport{
		Title:       data.Title,
		Diff:        data.Diff,
		Permalink:   link,
		Body:        body,
		IssueURL:    issueURL,
		EngineError: data.EngineError,
	}, nil
}

// IssueURL returns target with the report body as its single `body` query parameter.
func IssueURL(target, body string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse issue url: %w", err)
	}
	u.RawQuery = url.Values{"body": {body}}.Encode()
	return u.String(), nil
}
