package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
)

// schedulerMockOrchestrator counts SyncAll calls.
type schedulerMockOrchestrator struct {
	calls atomic.Int32
	err   error
}

func (m *schedulerMockOrchestrator) Sync(context.Context, string, driving.SyncOptions) error {
	return nil
}

func (m *schedulerMockOrchestrator) SyncAll(context.Context, driving.SyncOptions) error {
	m.calls.Add(1)
	return m.err
}

func (m *schedulerMockOrchestrator) Status(_ context.Context, id string) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{SourceID: id}, nil
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	orch := &schedulerMockOrchestrator{err: errors.New("one source failed")}
	s := NewScheduler(10*time.Millisecond, orch, driving.SyncOptions{})

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return orch.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)
}

func TestScheduler_ContextCancel(t *testing.T) {
	orch := &schedulerMockOrchestrator{}
	s := NewScheduler(time.Hour, orch, driving.SyncOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return orch.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.NoError(t, s.Stop(), "stop after cancel is a no-op")
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s := NewScheduler(time.Minute, &schedulerMockOrchestrator{}, driving.SyncOptions{})
	assert.NoError(t, s.Stop())
}
