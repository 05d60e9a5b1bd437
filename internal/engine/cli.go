package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// DefaultBinary is the formatter executable looked up on PATH.
const DefaultBinary = "djangofmt"

// displayName replaces the temp file path in diagnostics.
const displayName = "template.html"

// CLIEngine implements Engine by running the djangofmt binary on a temp file.
type CLIEngine struct {
	Binary  string        // executable name or path; DefaultBinary when empty
	Timeout time.Duration // per call; zero means no timeout
	Color   bool          // ask the engine for ANSI-colored diagnostics
}

// NewCLIEngine returns a CLIEngine for the given binary.
func NewCLIEngine(binary string, timeout time.Duration) *CLIEngine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CLIEngine{Binary: binary, Timeout: timeout, Color: true}
}

// Format writes source to a temp file, lets the engine rewrite it in place and
// reads it back. An engine that makes no changes yields the source unchanged.
func (e *CLIEngine) Format(ctx context.Context, source string, width, indent int, mode string) (string, error) {
	path, cleanup, err := writeTemp(source)
	if err != nil {
		return "", err
	}
	defer cleanup()

	args := []string{
		"--line-length", strconv.Itoa(width),
		"--indent-width", strconv.Itoa(indent),
		"--profile", mode,
		path,
	}
	if _, err := e.run(ctx, path, args...); err != nil {
		return "", err
	}

	out, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read formatted output: %w", err)
	}
	return string(out), nil
}

// Lint runs `check` on a temp file. Exit status 1 means diagnostics were
// found; any other non-zero status is a failure.
func (e *CLIEngine) Lint(ctx context.Context, source, mode string) (LintOutput, error) {
	path, cleanup, err := writeTemp(source)
	if err != nil {
		return LintOutput{}, err
	}
	defer cleanup()

	out, err := e.run(ctx, path, "check", "--profile", mode, path)
	if err == nil {
		return LintOutput{}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		lo := ParseCheckOutput(out)
		if strings.TrimSpace(ansi.Strip(lo.Output)) == "" {
			// Status 1 without diagnostics cannot be shown as findings.
			return LintOutput{}, &Error{
				Message:  "check exited with status 1 without diagnostics",
				ExitCode: 1,
				err:      exitErr,
			}
		}
		if lo.ErrorCount == 0 {
			lo.ErrorCount = 1
		}
		return lo, nil
	}
	return LintOutput{}, err
}

// run executes the engine and returns its combined diagnostic output with
// the temp path replaced by a stable display name.
func (e *CLIEngine) run(ctx context.Context, path string, args ...string) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	binary := e.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.WaitDelay = time.Second
	cmd.Env = os.Environ()
	if e.Color {
		cmd.Env = append(cmd.Env, "FORCE_COLOR=1", "CLICOLOR_FORCE=1")
	} else {
		cmd.Env = append(cmd.Env, "NO_COLOR=1")
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	output := stderr.String()
	if strings.TrimSpace(output) == "" {
		output = stdout.String()
	}
	output = strings.ReplaceAll(output, path, displayName)

	if runErr == nil {
		return output, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("%s timed out after %s", binary, e.Timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		msg := strings.TrimSpace(ansi.Strip(output))
		if msg == "" {
			msg = exitErr.Error()
		}
		return output, &Error{Message: msg, ExitCode: exitErr.ExitCode(), err: exitErr}
	}
	return output, fmt.Errorf("%s: %w", binary, runErr)
}

// Error is a failure reported by the engine process itself.
type Error struct {
	Message  string
	ExitCode int
	err      *exec.ExitError
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying *exec.ExitError.
func (e *Error) Unwrap() error { return e.err }

func writeTemp(source string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "fmtplay-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, displayName)
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp source: %w", err)
	}
	return path, cleanup, nil
}

var (
	foundHeaderRe = regexp.MustCompile(`Found (\d+) lint errors?`)
	markerRe      = regexp.MustCompile(`(?m)^\s*×`)
)

// ParseCheckOutput extracts the diagnostic count from check output and drops
// the "Found N lint error(s)" summary line, which duplicates the count.
func ParseCheckOutput(raw string) LintOutput {
	lines := strings.Split(raw, "\n")
	count := -1
	kept := make([]string, 0, len(lines))
	skipBlank := false
	for _, line := range lines {
		plain := ansi.Strip(line)
		if count < 0 {
			if m := foundHeaderRe.FindStringSubmatch(plain); m != nil {
				count, _ = strconv.Atoi(m[1])
				skipBlank = true
				continue
			}
		}
		if skipBlank {
			skipBlank = false
			if strings.TrimSpace(plain) == "" {
				continue
			}
		}
		kept = append(kept, line)
	}

	output := strings.Join(kept, "\n")
	if strings.TrimSpace(ansi.Strip(output)) == "" {
		output = ""
	}
	if count < 0 {
		count = len(markerRe.FindAllStringIndex(ansi.Strip(output), -1))
	}
	return LintOutput{Output: output, ErrorCount: count}
}
