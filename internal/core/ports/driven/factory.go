package driven

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// ConnectorBuilder creates a Connector from a Source and its authenticator.
type ConnectorBuilder func(source domain.Source, auth Authenticator) (Connector, error)

// ConnectorFactory creates connectors from source configuration.
// It maintains a registry of connector types and their builders.
type ConnectorFactory interface {
	// Create returns a Connector for the given source.
	// Resolves the Authenticator from the connector type's AuthSpec.
	// Returns ErrUnsupportedType if the source type is unknown.
	Create(ctx context.Context, source domain.Source) (Connector, error)

	// Register adds a connector type and its builder.
	Register(connectorType domain.ConnectorType, builder ConnectorBuilder)

	// SupportedTypes returns all registered connector types, sorted.
	SupportedTypes() []string

	// Describe returns the metadata of a registered connector type.
	Describe(connectorType string) (*domain.ConnectorType, bool)
}
