package models

import "time"

// RunKind identifies which engine operation a run recorded.
type RunKind string

const (
	RunKindFormat RunKind = "format"
	RunKindLint   RunKind = "lint"
)

// RunOutcome is how the engine call ended.
type RunOutcome string

const (
	RunOutcomeOK       RunOutcome = "ok"
	RunOutcomeDegraded RunOutcome = "degraded"
)

// Run records the metadata of a single engine invocation. The source text
// itself is never stored; sessions live in permalinks only.
type Run struct {
	ID         string        `json:"id"`
	Kind       RunKind       `json:"kind"`
	Origin     string        `json:"origin"` // cli, api, mcp, watch
	Mode       string        `json:"mode"`
	Width      int           `json:"width"`
	Indent     int           `json:"indent"`
	SourceSize int           `json:"source_size"`
	Duration   time.Duration `json:"duration_ns"`
	ErrorCount int           `json:"error_count"`
	Outcome    RunOutcome    `json:"outcome"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
