package domain

import (
	"fmt"
	"slices"
	"time"
)

// Source represents a configured connector instance.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// Type identifies the connector type (e.g., "gorgias", "snapchat_ads").
	Type string

	// Name is the human-readable name for this source.
	Name string

	// Resources selects which connector resources to extract.
	// Empty means every resource the connector offers.
	Resources []string

	// StartDate is the first-run watermark when no checkpoint exists.
	StartDate *time.Time

	// EndDate bounds every run when set.
	EndDate *time.Time

	// Config contains connector-specific configuration and credentials.
	Config map[string]string

	// CreatedAt is when the source was created.
	CreatedAt time.Time

	// UpdatedAt is when the source was last updated.
	UpdatedAt time.Time
}

// DisplayName returns the name, falling back to the ID.
func (s *Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// SelectResources resolves the resources to run against what the connector
// offers. An explicit selection wins over the source's own list.
func (s *Source) SelectResources(available, selected []string) ([]string, error) {
	want := selected
	if len(want) == 0 {
		want = s.Resources
	}
	if len(want) == 0 {
		return available, nil
	}
	for _, r := range want {
		if !slices.Contains(available, r) {
			return nil, fmt.Errorf("%w: resource %q is not offered by %s", ErrConfiguration, r, s.Type)
		}
	}
	return want, nil
}

// SyncState tracks the synchronisation progress for a source.
type SyncState struct {
	// SourceID links to the Source being synced.
	SourceID string

	// Cursor is the encoded Checkpoint.
	Cursor string

	// LastSync is when the last successful sync completed.
	LastSync time.Time

	// RunID identifies the run that last advanced the state.
	RunID string
}

// ExtractRequest asks a connector for one resource within a time window.
type ExtractRequest struct {
	// Resource names the connector resource.
	Resource string

	// Since is the lower bound (inclusive). Zero lets the connector
	// apply its own default start date.
	Since time.Time

	// Until is the upper bound (inclusive). Zero means unbounded.
	Until time.Time
}

// SyncRun records the outcome of extracting one resource.
type SyncRun struct {
	ID         string
	SourceID   string
	Resource   string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int
	Watermark  time.Time
	Error      string
}

// Succeeded reports whether the run completed without error.
func (r *SyncRun) Succeeded() bool {
	return r.Error == ""
}
