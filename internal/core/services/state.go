package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
)

// Ensure StateService implements the interface.
var _ driving.StateService = (*StateService)(nil)

// StateService inspects and resets stored checkpoints.
type StateService struct {
	syncStore driven.SyncStateStore
	runStore  driven.RunStore
}

// NewStateService creates a new state service.
func NewStateService(syncStore driven.SyncStateStore, runStore driven.RunStore) *StateService {
	return &StateService{syncStore: syncStore, runStore: runStore}
}

// Show returns the decoded checkpoint of a source.
func (s *StateService) Show(ctx context.Context, sourceID string) (*domain.Checkpoint, error) {
	state, err := s.syncStore.Get(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewCheckpoint(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return domain.DecodeCheckpoint(state.Cursor)
}

// Reset removes the watermark of one resource, or all of them when
// resource is empty. Other resources keep theirs.
func (s *StateService) Reset(ctx context.Context, sourceID, resource string) error {
	state, err := s.syncStore.Get(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get sync state: %w", err)
	}

	checkpoint, err := domain.DecodeCheckpoint(state.Cursor)
	if err != nil {
		// An undecodable checkpoint can only be reset as a whole.
		if resource != "" {
			return err
		}
		checkpoint = domain.NewCheckpoint()
	}
	checkpoint.Reset(resource)

	state.Cursor = checkpoint.Encode()
	if err := s.syncStore.Save(ctx, *state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// History returns recent runs for a source, newest first.
func (s *StateService) History(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	if s.runStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.runStore.List(ctx, sourceID, limit)
}
