package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure ConnectorFactory implements the interface.
var _ driven.ConnectorFactory = (*ConnectorFactory)(nil)

type registeredType struct {
	def     domain.ConnectorType
	builder driven.ConnectorBuilder
}

// ConnectorFactory resolves a source's authenticator and hands it to the
// builder registered for the source type.
type ConnectorFactory struct {
	auth driven.AuthenticatorFactory

	mu    sync.RWMutex
	types map[string]registeredType
}

// NewConnectorFactory creates an empty factory using auth to build authenticators.
func NewConnectorFactory(auth driven.AuthenticatorFactory) *ConnectorFactory {
	return &ConnectorFactory{
		auth:  auth,
		types: make(map[string]registeredType),
	}
}

// Register adds a connector type. A later registration of the same ID wins.
func (f *ConnectorFactory) Register(connectorType domain.ConnectorType, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types[connectorType.ID] = registeredType{def: connectorType, builder: builder}
}

// Create returns a Connector for the given source.
func (f *ConnectorFactory) Create(ctx context.Context, source domain.Source) (driven.Connector, error) {
	f.mu.RLock()
	rt, ok := f.types[source.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, source.Type)
	}
	if f.auth == nil {
		return nil, fmt.Errorf("create authenticator: authenticator factory not configured")
	}

	authenticator, err := f.auth.Create(ctx, rt.def.Auth, source.Config)
	if err != nil {
		return nil, fmt.Errorf("create authenticator for %s: %w", source.ID, err)
	}

	conn, err := rt.builder(source, authenticator)
	if err != nil {
		return nil, fmt.Errorf("build %s connector: %w", source.Type, err)
	}
	return conn, nil
}

// SupportedTypes returns all registered connector type IDs, sorted.
func (f *ConnectorFactory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.types))
	for id := range f.types {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Describe returns a copy of a registered connector type's metadata.
func (f *ConnectorFactory) Describe(connectorType string) (*domain.ConnectorType, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rt, ok := f.types[connectorType]
	if !ok {
		return nil, false
	}
	def := rt.def
	def.Resources = slices.Clone(def.Resources)
	def.ConfigKeys = slices.Clone(def.ConfigKeys)
	return &def, true
}
