package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
)

type mockSyncOrchestrator struct {
	mu       sync.Mutex
	syncErr  error
	allErr   error
	synced   []string
	allCalls int
	lastOpts driving.SyncOptions
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, sourceID string, opts driving.SyncOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, sourceID)
	m.lastOpts = opts
	return m.syncErr
}

func (m *mockSyncOrchestrator) SyncAll(_ context.Context, opts driving.SyncOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allCalls++
	m.lastOpts = opts
	return m.allErr
}

func (m *mockSyncOrchestrator) Status(_ context.Context, sourceID string) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{SourceID: sourceID}, nil
}

type mockStateService struct {
	checkpoint *domain.Checkpoint
	runs       []domain.SyncRun
	err        error

	resetSource   string
	resetResource string
	historyLimit  int
}

func (m *mockStateService) Show(context.Context, string) (*domain.Checkpoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.checkpoint == nil {
		return domain.NewCheckpoint(), nil
	}
	return m.checkpoint, nil
}

func (m *mockStateService) Reset(_ context.Context, sourceID, resource string) error {
	m.resetSource = sourceID
	m.resetResource = resource
	return m.err
}

func (m *mockStateService) History(_ context.Context, _ string, limit int) ([]domain.SyncRun, error) {
	m.historyLimit = limit
	return m.runs, m.err
}

type mockConnectorRegistry struct {
	types []domain.ConnectorType
}

func (m *mockConnectorRegistry) List() []domain.ConnectorType {
	return m.types
}

func (m *mockConnectorRegistry) Get(id string) (*domain.ConnectorType, error) {
	for i := range m.types {
		if m.types[i].ID == id {
			return &m.types[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockConnectorRegistry) ValidateConfig(string, map[string]string) error {
	return nil
}

type mockSourceService struct {
	sources []domain.Source
	err     error
}

func (m *mockSourceService) List(context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	for i := range m.sources {
		if m.sources[i].ID == id {
			return &m.sources[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockScheduler struct {
	started bool
	err     error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error { return nil }

// withServices installs services for one test and clears them afterwards.
func withServices(t *testing.T, s Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(Services{}) })
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	return buf.String(), err
}

func resetFlags() {
	syncResources = nil
	syncStartDate = ""
	syncEndDate = ""
	syncFull = false
	syncEvery = 0
	resetResource = ""
	historyLimit = 20
}
