// Package engine defines the capability the playground needs from an
// external template formatter/linter, plus adapters that provide it.
package engine

import "context"

// LintOutput is what the linter reports for one source text.
type LintOutput struct {
	Output     string // ANSI-colored diagnostic text, empty when clean
	ErrorCount int
}

// Engine formats and lints template source. Errors carry an engine-defined
// message and are treated as opaque text by callers.
type Engine interface {
	Format(ctx context.Context, source string, width, indent int, mode string) (string, error)
	Lint(ctx context.Context, source, mode string) (LintOutput, error)
}

// FormatFunc has the signature of Engine.Format.
type FormatFunc func(ctx context.Context, source string, width, indent int, mode string) (string, error)

// LintFunc has the signature of Engine.Lint.
type LintFunc func(ctx context.Context, source, mode string) (LintOutput, error)

// FuncEngine adapts plain functions to the Engine interface. A nil
// FormatFn returns the source unchanged; a nil LintFn reports no issues.
type FuncEngine struct {
	FormatFn FormatFunc
	LintFn   LintFunc
}

func (e FuncEngine) Format(ctx context.Context, source string, width, indent int, mode string) (string, error) {
	if e.FormatFn == nil {
		return source, nil
	}
	return e.FormatFn(ctx, source, width, indent, mode)
}

func (e FuncEngine) Lint(ctx context.Context, source, mode string) (LintOutput, error) {
	if e.LintFn == nil {
		return LintOutput{}, nil
	}
	return e.LintFn(ctx, source, mode)
}
