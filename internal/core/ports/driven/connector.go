package driven

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// Connector extracts records from a provider API.
// Each connector type (gorgias, snapchat_ads, app_store, etc.) implements this interface.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Resources returns the resources this connector can extract.
	Resources() []string

	// Validate checks the connector is properly configured.
	// Performs a lightweight check without fetching records.
	// Returns nil if ready to extract, error describing the problem otherwise.
	Validate(ctx context.Context) error

	// Extract streams the records of one resource within the request window.
	// Both channels are closed when extraction ends. On success the error
	// channel carries a SyncComplete with the new watermark; any other
	// value on it is a terminal failure. Configuration errors are sent
	// before the first page is fetched.
	Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsIncremental indicates the connector honours ExtractRequest.Since.
	SupportsIncremental bool

	// NewestFirst indicates pages arrive in decreasing recency so the
	// watermark can stop pagination early.
	NewestFirst bool

	// RequiresAuth indicates the connector needs credentials.
	RequiresAuth bool

	// SupportsValidation indicates Validate() performs actual validation.
	SupportsValidation bool

	// SupportsRateLimiting indicates the connector paces requests internally.
	SupportsRateLimiting bool

	// SupportsPagination indicates the connector handles paginated APIs.
	SupportsPagination bool
}

// SyncComplete is sent on the error channel when extraction completes successfully.
// Carries the new watermark for the resource.
type SyncComplete struct {
	// Watermark is the maximum cursor-field value observed, or the
	// request's Since when no record carried one.
	Watermark time.Time
}

// Error implements the error interface.
// This allows SyncComplete to be sent on the error channel.
func (SyncComplete) Error() string {
	return "sync complete"
}

// IsSyncComplete checks if an error is actually a successful completion.
// Returns the SyncComplete and true if it is, nil and false otherwise.
func IsSyncComplete(err error) (*SyncComplete, bool) {
	var sc *SyncComplete
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}
