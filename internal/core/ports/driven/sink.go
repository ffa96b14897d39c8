package driven

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// RecordSink receives extracted records.
// Write may buffer; Flush must make every written record durable
// before a watermark covering it is persisted.
type RecordSink interface {
	// Write appends a record for a source resource.
	Write(ctx context.Context, sourceID, resource string, rec domain.Record) error

	// Flush makes buffered records durable.
	Flush(ctx context.Context) error

	// Close flushes and releases resources.
	Close() error
}
