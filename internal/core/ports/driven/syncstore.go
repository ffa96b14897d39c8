package driven

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// SyncStateStore persists per-source watermarks.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a source.
	// Returns domain.ErrNotFound before the first successful run.
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)

	// Delete removes sync state for a source.
	Delete(ctx context.Context, sourceID string) error
}

// RunStore keeps the history of resource extractions.
type RunStore interface {
	// Record stores a finished run.
	Record(ctx context.Context, run domain.SyncRun) error

	// List returns the most recent runs for a source, newest first.
	// A limit of zero or less returns every run.
	List(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
}
