package store

import (
	"context"

	"github.com/joescharf/fmtplay/internal/models"
)

// RunListFilter specifies filters for listing runs.
type RunListFilter struct {
	Kind    models.RunKind
	Outcome models.RunOutcome
	Limit   int
}

// RunStats aggregates runs of one kind.
type RunStats struct {
	Kind        models.RunKind
	Total       int
	Degraded    int
	AvgDuration float64 // milliseconds, successful runs only
}

// Store defines the run history persistence interface.
type Store interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, filter RunListFilter) ([]*models.Run, error)
	Stats(ctx context.Context) ([]RunStats, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
