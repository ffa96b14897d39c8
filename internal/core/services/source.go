package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService reads source configurations and checks them against the
// connector registry.
type SourceService struct {
	sourceStore       driven.SourceStore
	connectorRegistry driving.ConnectorRegistry
}

// NewSourceService creates a new source service. registry may be nil to
// skip config checks.
func NewSourceService(sourceStore driven.SourceStore, registry driving.ConnectorRegistry) *SourceService {
	return &SourceService{
		sourceStore:       sourceStore,
		connectorRegistry: registry,
	}
}

// Get retrieves a source by ID and checks its config.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	source, err := s.sourceStore.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	if err := s.check(source); err != nil {
		return nil, err
	}
	return source, nil
}

// List returns all configured sources.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.sourceStore.List(ctx)
}

func (s *SourceService) check(source *domain.Source) error {
	if s.connectorRegistry == nil {
		return nil
	}
	if _, err := s.connectorRegistry.Get(source.Type); err != nil {
		return fmt.Errorf("source %s: %w: %s", source.ID, domain.ErrUnsupportedType, source.Type)
	}
	if err := s.connectorRegistry.ValidateConfig(source.Type, source.Config); err != nil {
		return fmt.Errorf("source %s: %w", source.ID, err)
	}
	return nil
}
