package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
	"github.com/custodia-labs/tidemark/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler repeats SyncAll on a fixed interval. A run never overlaps the
// previous one: the next tick is measured from the end of the last run.
type Scheduler struct {
	interval time.Duration
	syncOrch driving.SyncOrchestrator
	opts     driving.SyncOptions

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler syncing every interval.
func NewScheduler(interval time.Duration, syncOrch driving.SyncOrchestrator, opts driving.SyncOptions) *Scheduler {
	return &Scheduler{
		interval: interval,
		syncOrch: syncOrch,
		opts:     opts,
	}
}

// Start runs a sync immediately and then after every interval. It blocks
// until ctx ends or Stop is called. Sync failures are logged, not returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-timer.C:
			if err := s.syncOrch.SyncAll(ctx, s.opts); err != nil {
				logger.Error("Scheduled sync failed: %v", err)
			}
			logger.Info("Next sync in %s", s.interval)
			timer.Reset(s.interval)
		}
	}
}

// Stop ends the loop and waits for an in-flight sync to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

func (s *Scheduler) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}
