package driving

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// StateService exposes stored watermarks and run history.
type StateService interface {
	// Show returns the decoded checkpoint of a source.
	// A source that never synced has an empty checkpoint.
	Show(ctx context.Context, sourceID string) (*domain.Checkpoint, error)

	// Reset deletes the watermark of one resource, or of all resources
	// when resource is empty. This is the only way a watermark is removed.
	Reset(ctx context.Context, sourceID, resource string) error

	// History returns recent runs for a source, newest first.
	History(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
}
