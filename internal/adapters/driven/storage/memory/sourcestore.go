package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
// Sources are copied in and out so callers cannot alias stored config.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
	now     func() time.Time
}

// NewSourceStore creates a store seeded with sources.
func NewSourceStore(sources ...domain.Source) *SourceStore {
	s := &SourceStore{
		sources: make(map[string]domain.Source, len(sources)),
		now:     time.Now,
	}
	for _, src := range sources {
		s.sources[src.ID] = clone(src)
	}
	return s
}

// Save stores or updates a source, keeping the original CreatedAt.
func (s *SourceStore) Save(_ context.Context, source domain.Source) error {
	if source.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.sources[source.ID]; ok {
		source.CreatedAt = existing.CreatedAt
	} else if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now
	s.sources[source.ID] = clone(source)
	return nil
}

// Get retrieves a source by ID.
func (s *SourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source, ok := s.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clone(source)
	return &out, nil
}

// Delete removes a source.
func (s *SourceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
	return nil
}

// List returns all sources sorted by ID.
func (s *SourceStore) List(_ context.Context) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Source, 0, len(s.sources))
	for _, source := range s.sources {
		result = append(result, clone(source))
	}
	slices.SortFunc(result, func(a, b domain.Source) int { return strings.Compare(a.ID, b.ID) })
	return result, nil
}

func clone(src domain.Source) domain.Source {
	src.Config = maps.Clone(src.Config)
	src.Resources = slices.Clone(src.Resources)
	return src
}
