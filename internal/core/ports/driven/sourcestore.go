package driven

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// SourceStore holds source definitions keyed by source ID.
type SourceStore interface {
	// Save creates the source or replaces the one with the same ID.
	Save(ctx context.Context, source domain.Source) error

	// Get returns domain.ErrNotFound for an unknown ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Delete succeeds when the source does not exist.
	Delete(ctx context.Context, id string) error

	// List returns every source sorted by ID.
	List(ctx context.Context) ([]domain.Source, error)
}
