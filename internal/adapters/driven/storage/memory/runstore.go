package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore keeps run history in insertion order.
type RunStore struct {
	mu   sync.RWMutex
	runs []domain.SyncRun
}

// NewRunStore creates an empty run store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// Record appends a finished run.
func (s *RunStore) Record(_ context.Context, run domain.SyncRun) error {
	if run.ID == "" || run.SourceID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// List returns the newest runs of a source first.
func (s *RunStore) List(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SyncRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].SourceID != sourceID {
			continue
		}
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
