package driving

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// SourceService lists configured sources.
type SourceService interface {
	// List returns all configured sources.
	List(ctx context.Context) ([]domain.Source, error)

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)
}
