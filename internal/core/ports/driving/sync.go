package driving

import (
	"context"
	"time"
)

// SyncOrchestrator coordinates incremental extraction from sources.
type SyncOrchestrator interface {
	// Sync extracts every selected resource of a source.
	Sync(ctx context.Context, sourceID string, opts SyncOptions) error

	// SyncAll extracts every configured source.
	SyncAll(ctx context.Context, opts SyncOptions) error

	// Status returns sync status for a source.
	Status(ctx context.Context, sourceID string) (*SyncStatus, error)
}

// SyncOptions override the stored state for a single run.
type SyncOptions struct {
	// Resources limits the run to these resources.
	Resources []string

	// StartDate replaces the stored watermark as the lower bound.
	StartDate *time.Time

	// EndDate bounds the run, overriding the source's end date.
	EndDate *time.Time

	// Full ignores stored watermarks and starts from the source start date.
	Full bool
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// SourceID identifies the source.
	SourceID string

	// RunID identifies the run in progress.
	RunID string

	// Running indicates if sync is currently in progress.
	Running bool

	// Resource is the resource currently being extracted.
	Resource string

	// RecordsWritten is the count of records written to the sink.
	RecordsWritten int
}
