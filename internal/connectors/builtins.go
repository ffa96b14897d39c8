package connectors

import (
	"github.com/custodia-labs/tidemark/internal/connectors/appstore"
	"github.com/custodia-labs/tidemark/internal/connectors/googleanalytics"
	"github.com/custodia-labs/tidemark/internal/connectors/gorgias"
	"github.com/custodia-labs/tidemark/internal/connectors/primer"
	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/connectors/snapchatads"
	"github.com/custodia-labs/tidemark/internal/connectors/tiktokads"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

type builtin struct {
	definition func() domain.ConnectorType
	build      func(opts ...rest.ClientOption) driven.ConnectorBuilder
}

var builtins = []builtin{
	{appstore.Definition, appstore.Builder},
	{googleanalytics.Definition, func(...rest.ClientOption) driven.ConnectorBuilder {
		// The Data API client manages its own transport.
		return googleanalytics.Build
	}},
	{gorgias.Definition, gorgias.Builder},
	{primer.Definition, primer.Builder},
	{snapchatads.Definition, snapchatads.Builder},
	{tiktokads.Definition, tiktokads.Builder},
}

// RegisterBuiltins registers every built-in connector type with f.
// opts apply to the REST client of each connector.
func RegisterBuiltins(f driven.ConnectorFactory, opts ...rest.ClientOption) {
	for _, b := range builtins {
		f.Register(b.definition(), b.build(opts...))
	}
}
