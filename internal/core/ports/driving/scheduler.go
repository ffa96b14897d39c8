package driving

import "context"

// Scheduler runs syncs in the background.
type Scheduler interface {
	// Start begins running scheduled syncs.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop.
	Stop() error
}
