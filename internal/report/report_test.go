package report

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/fmtplay/internal/permalink"
)

func newTestReporter(t *testing.T) *Reporter {
	t.Helper()
	codec, err := permalink.NewCodec("https://play.example.com/")
	require.NoError(t, err)
	return NewReporter(codec, "")
}

func TestDiff_Identical(t *testing.T) {
	d, err := Diff("<p>x</p>\n", "<p>x</p>\n")
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestDiff_StripsHeadersAndHunks(t *testing.T) {
	source := "{% if x %}a{% endif %}"
	formatted := "{% if x %}\n    a\n{% endif %}"

	d, err := Diff(source, formatted)
	require.NoError(t, err)

	assert.Equal(t, "-{% if x %}a{% endif %}\n+{% if x %}\n+    a\n+{% endif %}", d)
	assert.NotContains(t, d, "---")
	assert.NotContains(t, d, "+++")
	assert.NotContains(t, d, "@@")
}

func TestDiff_ContextWindow(t *testing.T) {
	var src, out []string
	for i := range 20 {
		line := "line " + string(rune('a'+i))
		src = append(src, line)
		out = append(out, line)
	}
	out[10] = "CHANGED"

	d, err := Diff(strings.Join(src, "\n")+"\n", strings.Join(out, "\n")+"\n")
	require.NoError(t, err)

	lines := strings.Split(d, "\n")
	// 3 context + removed + added + 3 context
	require.Len(t, lines, 8)
	assert.Equal(t, " line h", lines[0])
	assert.Equal(t, "-line k", lines[3])
	assert.Equal(t, "+CHANGED", lines[4])
	assert.Equal(t, " line n", lines[7])
}

func TestDiff_MultipleHunksHaveNoMarkers(t *testing.T) {
	var src []string
	for i := range 40 {
		src = append(src, "row")
		_ = i
	}
	out := append([]string(nil), src...)
	out[2] = "first"
	out[35] = "second"

	d, err := Diff(strings.Join(src, "\n"), strings.Join(out, "\n"))
	require.NoError(t, err)
	assert.Contains(t, d, "+first")
	assert.Contains(t, d, "+second")
	for _, line := range strings.Split(d, "\n") {
		require.NotEmpty(t, line)
		assert.Contains(t, " +-", line[:1], "unexpected diff line %q", line)
	}
}

func TestDiff_LinesStartingWithDashes(t *testing.T) {
	d, err := Diff("-- comment\n++ plus\nkeep\n", "-- comment\n++ plus\nkept\n")
	require.NoError(t, err)
	assert.Contains(t, d, " -- comment", "content lines that look like headers survive")
	assert.Contains(t, d, " ++ plus")
	assert.Contains(t, d, "-keep")
	assert.Contains(t, d, "+kept")
}

func TestTrimBlankLines(t *testing.T) {
	assert.Equal(t, "+a\n \n-b", trimBlankLines([]string{"", "  ", "+a", " ", "-b", "", ""}))
	assert.Equal(t, "", trimBlankLines([]string{"", " "}))
	assert.Equal(t, "", trimBlankLines(nil))
}

func TestBuild_EndToEnd(t *testing.T) {
	r := newTestReporter(t)
	s := permalink.Session{Source: "{% if x %}a{% endif %}", Mode: "django", Width: 88, Indent: 4}

	rep, err := r.Build(s, "{% if x %}\n    a\n{% endif %}", "")
	require.NoError(t, err)

	assert.False(t, rep.Empty())
	assert.Contains(t, rep.Body, "```diff\n-{% if x %}a{% endif %}\n+{% if x %}")
	assert.Contains(t, rep.Body, rep.Permalink)
	assert.Contains(t, rep.Body, "Line length: 88")
	assert.Contains(t, rep.Body, "Indent width: 4")
	assert.Contains(t, rep.Body, "`django`")
	assert.NotContains(t, rep.Body, "###", "no title heading without a title")

	// The permalink reproduces the original input, not the formatter output.
	got, ok := permalink.DecodeURL(rep.Permalink, permalink.Session{})
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestBuild_NoChanges(t *testing.T) {
	r := newTestReporter(t)
	s := permalink.Session{Source: "<p>same</p>\n", Mode: "django", Width: 120, Indent: 4}

	rep, err := r.Build(s, s.Source, "")
	require.NoError(t, err)
	assert.True(t, rep.Empty())
	assert.Empty(t, rep.Diff)
	assert.Contains(t, rep.Body, "no changes")
	assert.NotContains(t, rep.Body, "```diff")

	u, err := url.Parse(rep.Permalink)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "play.example.com", u.Host)
	src, ok := permalink.Decode(u.RawQuery)
	require.True(t, ok)
	assert.Equal(t, s.Source, src)
}

func TestBuildFailure_CarriesError(t *testing.T) {
	r := newTestReporter(t)
	s := permalink.Session{Source: "{% endif %}", Mode: "django", Width: 88, Indent: 4}

	rep, err := r.BuildFailure(s, "Error: unexpected endif\n", "")
	require.NoError(t, err)
	assert.True(t, rep.Failed())
	assert.False(t, rep.Empty())
	assert.Empty(t, rep.Diff)
	assert.Equal(t, "Error: unexpected endif", rep.EngineError)
	assert.Contains(t, rep.Body, "**Formatter error**\n\n```\nError: unexpected endif\n```")
	assert.NotContains(t, rep.Body, "```diff")
	assert.NotContains(t, rep.Body, "Formatter changes")
	assert.NotContains(t, rep.Body, "-{% endif %}")

	got, ok := permalink.DecodeURL(rep.Permalink, permalink.Session{})
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestBuild_Title(t *testing.T) {
	r := newTestReporter(t)
	rep, err := r.Build(permalink.Session{Source: "a", Mode: "django", Width: 80, Indent: 2}, "b", "Formatter breaks single-line if")
	require.NoError(t, err)
	assert.Equal(t, "Formatter breaks single-line if", rep.Title)
	assert.True(t, strings.HasPrefix(rep.Body, "### Formatter breaks single-line if\n"))
}

func TestBuild_IssueURLCarriesBody(t *testing.T) {
	r := newTestReporter(t)
	rep, err := r.Build(permalink.Session{Source: "a", Mode: "django", Width: 80, Indent: 2}, "b", "")
	require.NoError(t, err)

	u, err := url.Parse(rep.IssueURL)
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/UnknownPlatypus/djangofmt/issues/new", u.Path)
	q := u.Query()
	assert.Len(t, q, 1)
	assert.Equal(t, rep.Body, q.Get("body"))
}

func TestIssueURL_ReplacesExistingQuery(t *testing.T) {
	got, err := IssueURL("https://git.example.com/issues/new?template=bug.md", "hello & bye")
	require.NoError(t, err)
	assert.Equal(t, "https://git.example.com/issues/new?body=hello+%26+bye", got)
}
