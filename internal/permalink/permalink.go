// Package permalink encodes a playground session into a shareable URL and back.
//
// The source text travels in the `code` query parameter, compressed with
// lz-string's URI-component encoding so links interoperate with the browser
// playground. Formatting options travel as plain decimal/string parameters.
package permalink

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	lzstring "github.com/daku10/go-lz-string"
)

// Query parameter names.
const (
	ParamMode   = "mode"
	ParamWidth  = "width"
	ParamIndent = "indent"
	ParamCode   = "code"
)

// Session is the state a permalink carries.
type Session struct {
	Source string
	Mode   string
	Width  int
	Indent int
}

// Codec builds permalinks rooted at a page URL.
type Codec struct {
	base *url.URL
}

// NewCodec returns a Codec for the page at baseURL. Any query or fragment on
// baseURL is dropped; only origin and path are kept.
func NewCodec(baseURL string) (*Codec, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	if base.Path == "" {
		base.Path = "/"
	}
	return &Codec{base: base}, nil
}

// Base returns the origin and path permalinks are built on.
func (c *Codec) Base() string {
	return c.base.String()
}

// Compress encodes source into a URI-component-safe string.
func Compress(source string) (string, error) {
	return lzstring.CompressToEncodedURIComponent(source)
}

// emptyCode is the compressed form of the empty source.
var emptyCode, _ = Compress("")

// Decompress reverses Compress. It reports false for corrupt input instead of
// failing: a payload only counts when compressing the result reproduces it
// exactly, so arbitrary characters never restore junk text.
func Decompress(code string) (source string, ok bool) {
	// An unescaped '+' in a query string decodes to a space.
	code = strings.ReplaceAll(code, " ", "+")
	if code == emptyCode {
		return "", true
	}
	if code == "" {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Debug("permalink decompress panicked", "recover", r)
			source, ok = "", false
		}
	}()

	out, err := lzstring.DecompressFromEncodedURIComponent(code)
	if err != nil {
		slog.Debug("permalink decompress failed", "error", err)
		return "", false
	}
	if out == "" {
		return "", false
	}
	if again, err := Compress(out); err != nil || again != code {
		slog.Debug("permalink code is not canonical")
		return "", false
	}
	return out, true
}

// Query returns the permalink query string for s, parameters in
// mode, width, indent, code order.
func Query(s Session) (string, error) {
	code, err := Compress(s.Source)
	if err != nil {
		return "", fmt.Errorf("compress source: %w", err)
	}
	pairs := [][2]string{
		{ParamMode, s.Mode},
		{ParamWidth, strconv.Itoa(s.Width)},
		{ParamIndent, strconv.Itoa(s.Indent)},
		{ParamCode, code},
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String(), nil
}

// Encode returns the full permalink URL for s.
func (c *Codec) Encode(s Session) (string, error) {
	q, err := Query(s)
	if err != nil {
		return "", err
	}
	u := *c.base
	u.RawQuery = q
	return u.String(), nil
}

// Decode extracts the source text from a permalink query string. A leading
// '?' is accepted. Missing or undecodable code reports false.
func Decode(rawQuery string) (string, bool) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		// ParseQuery keeps the pairs it could parse.
		slog.Debug("permalink query malformed", "error", err)
	}
	if !values.Has(ParamCode) {
		return "", false
	}
	return Decompress(values.Get(ParamCode))
}

// DecodeSession restores a full session from a permalink query string. Options
// missing or unparseable in the query keep their value from defaults. The
// boolean reports whether source text was restored; when false the returned
// session is defaults unchanged.
func DecodeSession(rawQuery string, defaults Session) (Session, bool) {
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if !values.Has(ParamCode) {
		return defaults, false
	}
	source, ok := Decompress(values.Get(ParamCode))
	if !ok {
		return defaults, false
	}

	s := defaults
	s.Source = source
	if values.Has(ParamMode) {
		s.Mode = values.Get(ParamMode)
	}
	if n, err := strconv.Atoi(values.Get(ParamWidth)); err == nil {
		s.Width = n
	}
	if n, err := strconv.Atoi(values.Get(ParamIndent)); err == nil {
		s.Indent = n
	}
	return s, true
}

// DecodeURL is DecodeSession for a full permalink URL.
func DecodeURL(link string, defaults Session) (Session, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return defaults, false
	}
	return DecodeSession(u.RawQuery, defaults)
}
