package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
)

// Ensure ConnectorRegistry implements the interface.
var _ driving.ConnectorRegistry = (*ConnectorRegistry)(nil)

// ConnectorRegistry provides read-only information about the connector
// types registered with a factory.
type ConnectorRegistry struct {
	connectorFactory driven.ConnectorFactory
}

// NewConnectorRegistry creates a registry over connectorFactory.
func NewConnectorRegistry(connectorFactory driven.ConnectorFactory) *ConnectorRegistry {
	return &ConnectorRegistry{connectorFactory: connectorFactory}
}

// List returns all available connector types, sorted by ID.
func (r *ConnectorRegistry) List() []domain.ConnectorType {
	if r.connectorFactory == nil {
		return nil
	}
	ids := r.connectorFactory.SupportedTypes()
	result := make([]domain.ConnectorType, 0, len(ids))
	for _, id := range ids {
		if def, ok := r.connectorFactory.Describe(id); ok {
			result = append(result, *def)
		}
	}
	return result
}

// Get returns a connector type by ID.
func (r *ConnectorRegistry) Get(id string) (*domain.ConnectorType, error) {
	if r.connectorFactory == nil {
		return nil, domain.ErrNotFound
	}
	def, ok := r.connectorFactory.Describe(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return def, nil
}

// ValidateConfig checks that every required key of a connector type is set.
// It only checks presence. Typed validation happens when the connector is built.
func (r *ConnectorRegistry) ValidateConfig(connectorID string, config map[string]string) error {
	def, err := r.Get(connectorID)
	if err != nil {
		return err
	}

	var missing []string
	for _, key := range def.RequiredKeys() {
		if strings.TrimSpace(config[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", domain.ErrConfiguration, connectorID, strings.Join(missing, ", "))
	}
	return nil
}
