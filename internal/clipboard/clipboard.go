// Package clipboard copies text to the system clipboard.
package clipboard

import (
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
)

// Sink writes trimmed text to the clipboard. Failures are logged and never
// returned; copying is best effort.
type Sink struct {
	write func(string) error
	log   *slog.Logger
}

// New returns a Sink backed by the system clipboard.
func New(log *slog.Logger) *Sink {
	return NewWithWriter(clipboard.WriteAll, log)
}

// NewWithWriter returns a Sink that hands text to write.
func NewWithWriter(write func(string) error, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{write: write, log: log}
}

// Available reports whether a clipboard utility was found on this system.
func Available() bool {
	return !clipboard.Unsupported
}

// Copy places strings.TrimSpace(text) on the clipboard and reports whether it
// succeeded.
func (s *Sink) Copy(text string) bool {
	if s == nil || s.write == nil {
		return false
	}
	if err := s.write(strings.TrimSpace(text)); err != nil {
		s.log.Error("copy to clipboard failed", "error", err)
		return false
	}
	return true
}
