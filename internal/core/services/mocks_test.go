package services

import (
	"context"
	"errors"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// syncMockConnector streams canned records per resource.
type syncMockConnector struct {
	sourceID    string
	resources   []string
	records     map[string][]domain.Record
	watermarks  map[string]time.Time
	failures    map[string]error
	validateErr error
	validates   bool

	// block, when set, holds Extract until it is closed or ctx ends.
	block chan struct{}

	mu       stdsync.Mutex
	requests []domain.ExtractRequest
	closed   bool
}

func (m *syncMockConnector) Type() string     { return "mock" }
func (m *syncMockConnector) SourceID() string { return m.sourceID }
func (m *syncMockConnector) Resources() []string {
	return m.resources
}

func (m *syncMockConnector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{SupportsIncremental: true, SupportsValidation: m.validates}
}

func (m *syncMockConnector) Validate(_ context.Context) error {
	return m.validateErr
}

func (m *syncMockConnector) Extract(ctx context.Context, req domain.ExtractRequest) (<-chan domain.Record, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	records := make(chan domain.Record)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		if m.block != nil {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case <-m.block:
			}
		}

		for _, rec := range m.records[req.Resource] {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case records <- rec:
			}
		}
		if err := m.failures[req.Resource]; err != nil {
			errs <- err
			return
		}
		watermark, ok := m.watermarks[req.Resource]
		if !ok {
			watermark = req.Since
		}
		errs <- &driven.SyncComplete{Watermark: watermark}
	}()

	return records, errs
}

func (m *syncMockConnector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *syncMockConnector) Requests() []domain.ExtractRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExtractRequest(nil), m.requests...)
}

func (m *syncMockConnector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// syncMockAuthenticator sends no headers.
type syncMockAuthenticator struct{}

func (syncMockAuthenticator) Headers(context.Context) (http.Header, error) { return http.Header{}, nil }
func (syncMockAuthenticator) AuthMethod() domain.AuthMethod              { return domain.AuthMethodNone }

// syncMockAuthFactory records the specs it was asked for.
type syncMockAuthFactory struct {
	err   error
	specs []domain.AuthSpec
}

func (f *syncMockAuthFactory) Create(_ context.Context, spec domain.AuthSpec, _ map[string]string) (driven.Authenticator, error) {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return nil, f.err
	}
	return syncMockAuthenticator{}, nil
}

// syncMockSink keeps written records and counts flushes.
type syncMockSink struct {
	mu       stdsync.Mutex
	written  map[string][]domain.Record
	pending  int
	flushes  int
	writeErr error
	flushErr error
}

func newSyncMockSink() *syncMockSink {
	return &syncMockSink{written: make(map[string][]domain.Record)}
}

func (s *syncMockSink) Write(_ context.Context, sourceID, resource string, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	key := sourceID + "/" + resource
	s.written[key] = append(s.written[key], rec)
	s.pending++
	return nil
}

func (s *syncMockSink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushErr != nil {
		return s.flushErr
	}
	s.flushes++
	s.pending = 0
	return nil
}

func (s *syncMockSink) Close() error { return nil }

func (s *syncMockSink) Records(key string) []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written[key]
}

var errSyncMockBuild = errors.New("build failed")

// newSyncMockFactory registers conn as the only "mock" connector type.
func newSyncMockFactory(conn *syncMockConnector) *ConnectorFactory {
	factory := NewConnectorFactory(&syncMockAuthFactory{})
	factory.Register(domain.ConnectorType{
		ID:        "mock",
		Name:      "Mock",
		Resources: conn.resources,
		Auth:      domain.AuthSpec{Method: domain.AuthMethodNone},
	}, func(domain.Source, driven.Authenticator) (driven.Connector, error) {
		return conn, nil
	})
	return factory
}
