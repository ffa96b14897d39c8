package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
	"github.com/custodia-labs/tidemark/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// ProgressFunc receives a status snapshot after each written record.
type ProgressFunc func(status driving.SyncStatus)

// SyncOption configures a SyncOrchestrator.
type SyncOption func(*SyncOrchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SyncOption {
	return func(o *SyncOrchestrator) { o.now = now }
}

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(next func() string) SyncOption {
	return func(o *SyncOrchestrator) { o.newID = next }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) SyncOption {
	return func(o *SyncOrchestrator) { o.progress = fn }
}

// SyncOrchestrator runs incremental extractions. Records reach the sink
// before the watermark covering them is saved, so a failed run replays
// from the previous watermark.
type SyncOrchestrator struct {
	sourceStore driven.SourceStore
	syncStore   driven.SyncStateStore
	runStore    driven.RunStore
	factory     driven.ConnectorFactory
	sink        driven.RecordSink

	now      func() time.Time
	newID    func() string
	progress ProgressFunc

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	sourceStore driven.SourceStore,
	syncStore driven.SyncStateStore,
	runStore driven.RunStore,
	factory driven.ConnectorFactory,
	sink driven.RecordSink,
	opts ...SyncOption,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		sourceStore: sourceStore,
		syncStore:   syncStore,
		runStore:    runStore,
		factory:     factory,
		sink:        sink,
		now:         time.Now,
		newID:       uuid.NewString,
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync extracts every selected resource of a source. Resources run in
// order and the first failure stops the run; resources that completed
// before it keep their advanced watermarks.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) Sync(ctx context.Context, sourceID string, opts driving.SyncOptions) error {
	// 1. Get source configuration
	source, err := o.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}

	// 2. Claim the source
	runID := o.newID()
	status := &driving.SyncStatus{SourceID: sourceID, RunID: runID, Running: true}
	if !o.claim(sourceID, status) {
		return fmt.Errorf("%w: %s", domain.ErrSyncInProgress, sourceID)
	}
	defer o.clearStatus(sourceID)

	// 3. Create connector from source
	if o.factory == nil {
		return fmt.Errorf("create connector: connector factory not configured")
	}
	connector, err := o.factory.Create(ctx, *source)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	// 4. Validate connector (check auth, configuration, connectivity)
	if connector.Capabilities().SupportsValidation {
		if err := connector.Validate(ctx); err != nil {
			if errors.Is(err, domain.ErrConnectorValidation) {
				return err
			}
			return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
		}
	}

	// 5. Decode the checkpoint
	checkpoint, err := o.loadCheckpoint(ctx, sourceID)
	if err != nil {
		return err
	}

	// 6. Resolve resources
	resources, err := source.SelectResources(connector.Resources(), opts.Resources)
	if err != nil {
		return err
	}

	logger.Info("Starting sync for source %s (run %s)", sourceID, runID)

	// 7. Extract each resource
	for _, resource := range resources {
		req := o.request(source, checkpoint, resource, opts)
		o.updateStatus(sourceID, func(s *driving.SyncStatus) { s.Resource = resource })
		logger.Debug("Extracting %s/%s since %s", sourceID, resource, formatBound(req.Since))

		started := o.now()
		written, watermark, err := o.extract(ctx, connector, source.ID, req)
		run := domain.SyncRun{
			ID:         o.newID(),
			SourceID:   sourceID,
			Resource:   resource,
			StartedAt:  started,
			FinishedAt: o.now(),
			Records:    written,
		}

		if err == nil {
			err = o.commit(ctx, checkpoint, sourceID, runID, resource, watermark)
		}
		if err != nil {
			run.Error = err.Error()
			o.recordRun(ctx, run)
			return fmt.Errorf("sync %s/%s: %w", sourceID, resource, err)
		}

		run.Watermark, _ = checkpoint.Watermark(resource)
		o.recordRun(ctx, run)
		logger.Info("Synced %s/%s: %d records", sourceID, resource, written)
	}

	return nil
}

// SyncAll syncs every configured source, continuing past failures.
func (o *SyncOrchestrator) SyncAll(ctx context.Context, opts driving.SyncOptions) error {
	sources, err := o.sourceStore.List(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	var errs error
	for _, source := range sources {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if err := o.Sync(ctx, source.ID, opts); err != nil {
			logger.Error("Sync %s failed: %v", source.ID, err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Status returns sync status for a source.
func (o *SyncOrchestrator) Status(_ context.Context, sourceID string) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeSyncs[sourceID]; ok {
		// Return a copy to avoid race conditions
		snapshot := *status
		return &snapshot, nil
	}

	return &driving.SyncStatus{SourceID: sourceID}, nil
}

// request computes the extraction window of one resource.
func (o *SyncOrchestrator) request(
	source *domain.Source,
	checkpoint *domain.Checkpoint,
	resource string,
	opts driving.SyncOptions,
) domain.ExtractRequest {
	req := domain.ExtractRequest{Resource: resource}

	switch mark, ok := checkpoint.Watermark(resource); {
	case opts.StartDate != nil:
		req.Since = *opts.StartDate
	case ok && !opts.Full:
		req.Since = mark
	case source.StartDate != nil:
		req.Since = *source.StartDate
	}

	switch {
	case opts.EndDate != nil:
		req.Until = *opts.EndDate
	case source.EndDate != nil:
		req.Until = *source.EndDate
	}
	return req
}

// extract streams one resource into the sink and returns the connector's
// watermark. A sink failure cancels the connector and drains its channels.
func (o *SyncOrchestrator) extract(
	ctx context.Context,
	connector driven.Connector,
	sourceID string,
	req domain.ExtractRequest,
) (int, time.Time, error) {
	extractCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	records, errs := connector.Extract(extractCtx, req)

	var written int
	var writeErr error
	for rec := range records {
		if writeErr != nil {
			continue
		}
		if err := o.sink.Write(ctx, sourceID, req.Resource, rec); err != nil {
			writeErr = fmt.Errorf("write record: %w", err)
			cancel()
			continue
		}
		written++
		o.updateStatus(sourceID, func(s *driving.SyncStatus) { s.RecordsWritten++ })
	}

	var complete *driven.SyncComplete
	var extractErr error
	for err := range errs {
		if sc, ok := driven.IsSyncComplete(err); ok {
			complete = sc
			continue
		}
		if extractErr == nil {
			extractErr = err
		}
	}

	switch {
	case writeErr != nil:
		return written, time.Time{}, writeErr
	case extractErr != nil:
		return written, time.Time{}, fmt.Errorf("connector error: %w", extractErr)
	case complete == nil:
		if ctx.Err() != nil {
			return written, time.Time{}, ctx.Err()
		}
		return written, time.Time{}, fmt.Errorf("connector error: extraction ended without completion")
	}
	return written, complete.Watermark, nil
}

// commit makes the written records durable, then advances and saves the
// checkpoint.
func (o *SyncOrchestrator) commit(
	ctx context.Context,
	checkpoint *domain.Checkpoint,
	sourceID, runID, resource string,
	watermark time.Time,
) error {
	if err := o.sink.Flush(ctx); err != nil {
		return fmt.Errorf("flush sink: %w", err)
	}

	now := o.now()
	checkpoint.Advance(resource, watermark, now)

	state := domain.SyncState{
		SourceID: sourceID,
		Cursor:   checkpoint.Encode(),
		LastSync: now,
		RunID:    runID,
	}
	if err := o.syncStore.Save(ctx, state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

func (o *SyncOrchestrator) loadCheckpoint(ctx context.Context, sourceID string) (*domain.Checkpoint, error) {
	state, err := o.syncStore.Get(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewCheckpoint(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	checkpoint, err := domain.DecodeCheckpoint(state.Cursor)
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint of %s: %w", sourceID, err)
	}
	return checkpoint, nil
}

// recordRun stores run history. History is best effort and never fails a sync.
func (o *SyncOrchestrator) recordRun(ctx context.Context, run domain.SyncRun) {
	if o.runStore == nil {
		return
	}
	if err := o.runStore.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record run %s: %v", run.ID, err)
	}
}

func (o *SyncOrchestrator) claim(sourceID string, status *driving.SyncStatus) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.activeSyncs[sourceID]; running {
		return false
	}
	o.activeSyncs[sourceID] = status
	return true
}

func (o *SyncOrchestrator) updateStatus(sourceID string, fn func(*driving.SyncStatus)) {
	o.mu.Lock()
	status, ok := o.activeSyncs[sourceID]
	if ok {
		fn(status)
	}
	var snapshot driving.SyncStatus
	if ok {
		snapshot = *status
	}
	o.mu.Unlock()

	if ok && o.progress != nil {
		o.progress(snapshot)
	}
}

func (o *SyncOrchestrator) clearStatus(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, sourceID)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "the connector default"
	}
	return t.UTC().Format(time.RFC3339)
}
