package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/adapters/driven/auth"
	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/services"
)

func TestRegisterBuiltins(t *testing.T) {
	factory := services.NewConnectorFactory(auth.NewFactory())
	RegisterBuiltins(factory)

	assert.Equal(t, []string{
		"app_store",
		"google_analytics",
		"gorgias",
		"primer",
		"snapchat_ads",
		"tiktok_ads",
	}, factory.SupportedTypes())

	for _, id := range factory.SupportedTypes() {
		def, ok := factory.Describe(id)
		require.True(t, ok, id)
		assert.NotEmpty(t, def.Name, id)
		assert.NotEmpty(t, def.Resources, id)
		assert.True(t, def.RequiresAuth(), id)
	}
}

func TestRegisterBuiltins_CreateGorgias(t *testing.T) {
	factory := services.NewConnectorFactory(auth.NewFactory())
	RegisterBuiltins(factory)

	conn, err := factory.Create(context.Background(), domain.Source{
		ID:   "helpdesk",
		Type: "gorgias",
		Config: map[string]string{
			"domain":  "acme",
			"email":   "ops@acme.test",
			"api_key": "secret",
		},
	})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "gorgias", conn.Type())
	assert.Equal(t, "helpdesk", conn.SourceID())
}
