package playground

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joescharf/fmtplay/internal/bridge"
	"github.com/joescharf/fmtplay/internal/permalink"
)

// DefaultSettle is how long a file must stay quiet before it is re-run.
const DefaultSettle = 200 * time.Millisecond

// WatchEvent is the outcome of re-running a watched file.
type WatchEvent struct {
	Path   string
	Format bridge.FormatResult
	Lint   bridge.LintResult
	Err    error // reading the file or invalid options
}

// WatchOptions configures Watch.
type WatchOptions struct {
	// Settle is the quiet period after the last write. Zero uses DefaultSettle.
	Settle time.Duration
}

// Watch formats and lints path once, then again every time it is written,
// calling fn with each outcome. The options of s apply to every run; its
// Source is replaced by the file contents. Watch returns when ctx is done.
func (p *Playground) Watch(ctx context.Context, path string, s permalink.Session, opts WatchOptions, fn func(WatchEvent)) error {
	if err := Validate(s); err != nil {
		return err
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	fn(p.runFile(ctx, abs, s))

	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	var pending time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pending = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("watcher error", "path", abs, "error", err)

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < settle {
				continue
			}
			pending = time.Time{}
			fn(p.runFile(ctx, abs, s))
		}
	}
}

func (p *Playground) runFile(ctx context.Context, path string, s permalink.Session) WatchEvent {
	ev := WatchEvent{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		ev.Err = fmt.Errorf("read %s: %w", path, err)
		return ev
	}
	s.Source = string(data)
	ev.Format, ev.Err = p.Format(ctx, OriginWatch, s)
	if ev.Err != nil {
		return ev
	}
	ev.Lint = p.Lint(ctx, OriginWatch, s)
	return ev
}
