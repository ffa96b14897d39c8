package driving

import "github.com/custodia-labs/tidemark/internal/core/domain"

// ConnectorRegistry provides information about available connector types.
type ConnectorRegistry interface {
	// List returns every connector type, sorted by ID.
	List() []domain.ConnectorType

	// Get returns a connector type by ID.
	Get(id string) (*domain.ConnectorType, error)

	// ValidateConfig checks a config map carries every required key.
	ValidateConfig(connectorID string, config map[string]string) error
}
