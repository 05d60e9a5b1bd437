package permalink

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("https://play.example.com/djangofmt/?stale=1#frag")
	require.NoError(t, err)
	return c
}

func TestNewCodec_KeepsOriginAndPath(t *testing.T) {
	c := newTestCodec(t)
	assert.Equal(t, "https://play.example.com/djangofmt/", c.Base())
}

func TestNewCodec_EmptyPath(t *testing.T) {
	c, err := NewCodec("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", c.Base())
}

func TestNewCodec_RejectsRelative(t *testing.T) {
	_, err := NewCodec("/just/a/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	sources := map[string]string{
		"empty":     "",
		"ascii":     "{% if x %}a{% endif %}",
		"newlines":  "{% block content %}\n<div>\n  hi\n</div>\n{% endblock %}\n",
		"unicode":   "<p>héllo wörld ✓ 日本語 🚀</p>",
		"plus":      "a + b = c ++ d",
		"spaces":    "   leading and trailing   ",
		"ampersand": "<a href=\"?x=1&y=2\">x</a>",
		"long":      strings.Repeat("<div>{{ item.name|title }}</div>\n", 200),
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			link, err := c.Encode(Session{Source: src, Mode: "django", Width: 120, Indent: 4})
			require.NoError(t, err)

			u, err := url.Parse(link)
			require.NoError(t, err)

			got, ok := Decode(u.RawQuery)
			require.True(t, ok)
			assert.Equal(t, src, got)
		})
	}
}

func TestEncode_QueryShape(t *testing.T) {
	c := newTestCodec(t)
	link, err := c.Encode(Session{Source: "<p>x</p>", Mode: "Jinja", Width: 88, Indent: 2})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link, "https://play.example.com/djangofmt/?mode=Jinja&width=88&indent=2&code="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "Jinja", q.Get(ParamMode), "mode is not normalized by the codec")
	assert.Equal(t, "88", q.Get(ParamWidth))
	assert.Equal(t, "2", q.Get(ParamIndent))
	assert.NotEmpty(t, q.Get(ParamCode))
}

func TestCompress_URIComponentSafe(t *testing.T) {
	code, err := Compress(strings.Repeat("{% for x in items %}<li>{{ x }}</li>{% endfor %}\n", 20))
	require.NoError(t, err)
	for _, r := range code {
		ok := (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '$'
		assert.True(t, ok, "unexpected character %q in compressed payload", r)
	}
}

func TestDecode_MissingCode(t *testing.T) {
	_, ok := Decode("mode=django&width=80&indent=4")
	assert.False(t, ok)
}

func TestDecode_LeadingQuestionMark(t *testing.T) {
	q, err := Query(Session{Source: "abc", Mode: "django", Width: 80, Indent: 2})
	require.NoError(t, err)

	got, ok := Decode("?" + q)
	require.True(t, ok)
	assert.Equal(t, "abc", got)
}

func TestDecode_PlusTurnedIntoSpace(t *testing.T) {
	src := strings.Repeat("<p>{{ value|default:'n/a' }}</p>\n", 30)
	code, err := Compress(src)
	require.NoError(t, err)

	// Simulate a link whose '+' characters were not percent-encoded.
	got, ok := Decode("code=" + code)
	require.True(t, ok)
	assert.Equal(t, src, got)
}

func TestDecode_Garbage(t *testing.T) {
	garbage := []string{
		"code=!!!not-lz!!!",
		"code=%%%",
		"code=" + url.QueryEscape("日本語"),
		"code=AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"code=zzzz$$$$----++++",
		"code=Q",
		"code=%00%01%02",
		"code=" + strings.Repeat("xY9-", 500),
	}
	for _, q := range garbage {
		t.Run(q[:min(len(q), 24)], func(t *testing.T) {
			assert.NotPanics(t, func() {
				got, ok := Decode(q)
				if ok {
					// Only the canonical empty encoding may decode.
					assert.Empty(t, got)
				}
			})
		})
	}
}

func TestDecode_TruncatedCode(t *testing.T) {
	code, err := Compress("{% extends 'base.html' %}{% block content %}hello{% endblock %}")
	require.NoError(t, err)

	_, ok := Decode("code=" + url.QueryEscape(code[:len(code)/2]))
	assert.False(t, ok)
}

func TestDecodeSession_RestoresOptions(t *testing.T) {
	q, err := Query(Session{Source: "<p>x</p>", Mode: "jinja", Width: 100, Indent: 2})
	require.NoError(t, err)

	defaults := Session{Source: "default", Mode: "django", Width: 120, Indent: 4}
	s, ok := DecodeSession(q+"&extra=ignored", defaults)
	require.True(t, ok)
	assert.Equal(t, Session{Source: "<p>x</p>", Mode: "jinja", Width: 100, Indent: 2}, s)
}

func TestDecodeSession_BadNumbersKeepDefaults(t *testing.T) {
	code, err := Compress("<p>x</p>")
	require.NoError(t, err)

	defaults := Session{Source: "default", Mode: "django", Width: 120, Indent: 4}
	s, ok := DecodeSession("width=wide&indent=&code="+url.QueryEscape(code), defaults)
	require.True(t, ok)
	assert.Equal(t, "<p>x</p>", s.Source)
	assert.Equal(t, "django", s.Mode)
	assert.Equal(t, 120, s.Width)
	assert.Equal(t, 4, s.Indent)
}

func TestDecodeSession_Corrupt(t *testing.T) {
	defaults := Session{Source: "default", Mode: "django", Width: 120, Indent: 4}
	s, ok := DecodeSession("mode=jinja&code=@@@", defaults)
	assert.False(t, ok)
	assert.Equal(t, defaults, s)
}

func TestDecodeURL(t *testing.T) {
	c := newTestCodec(t)
	want := Session{Source: "{% if x %}a{% endif %}", Mode: "django", Width: 88, Indent: 4}
	link, err := c.Encode(want)
	require.NoError(t, err)

	got, ok := DecodeURL("  "+link+"\n", Session{})
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRoundTrip_ModeAndNumbers(t *testing.T) {
	c := newTestCodec(t)
	cases := []Session{
		{Source: "x", Mode: "", Width: 0, Indent: 0},
		{Source: "x", Mode: "weird mode&=?#", Width: -1, Indent: 999999},
		{Source: "x", Mode: "ünïcode", Width: 2147483647, Indent: 1},
	}
	for _, want := range cases {
		link, err := c.Encode(want)
		require.NoError(t, err)
		got, ok := DecodeURL(link, Session{Mode: "default", Width: 1, Indent: 1})
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}
