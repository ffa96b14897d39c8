package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

func TestConnectorFactory_Create(t *testing.T) {
	auth := &syncMockAuthFactory{}
	factory := NewConnectorFactory(auth)
	conn := &syncMockConnector{sourceID: "src", resources: []string{"tickets"}}

	spec := domain.AuthSpec{Method: domain.AuthMethodAPIKey, HeaderName: "Access-Token"}
	var built domain.Source
	factory.Register(domain.ConnectorType{ID: "mock", Auth: spec}, func(s domain.Source, a driven.Authenticator) (driven.Connector, error) {
		built = s
		require.NotNil(t, a)
		return conn, nil
	})

	got, err := factory.Create(context.Background(), domain.Source{ID: "src", Type: "mock"})
	require.NoError(t, err)
	assert.Same(t, conn, got)
	assert.Equal(t, "src", built.ID)
	require.Len(t, auth.specs, 1)
	assert.Equal(t, spec, auth.specs[0])
}

func TestConnectorFactory_CreateErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported type", func(t *testing.T) {
		_, err := NewConnectorFactory(&syncMockAuthFactory{}).Create(ctx, domain.Source{Type: "ftp"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("auth failure", func(t *testing.T) {
		factory := NewConnectorFactory(&syncMockAuthFactory{err: domain.ErrAuthRequired})
		factory.Register(domain.ConnectorType{ID: "mock"}, func(domain.Source, driven.Authenticator) (driven.Connector, error) {
			t.Fatal("builder must not run without an authenticator")
			return nil, nil
		})
		_, err := factory.Create(ctx, domain.Source{ID: "src", Type: "mock"})
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("builder failure", func(t *testing.T) {
		factory := NewConnectorFactory(&syncMockAuthFactory{})
		factory.Register(domain.ConnectorType{ID: "mock"}, func(domain.Source, driven.Authenticator) (driven.Connector, error) {
			return nil, errSyncMockBuild
		})
		_, err := factory.Create(ctx, domain.Source{ID: "src", Type: "mock"})
		assert.True(t, errors.Is(err, errSyncMockBuild))
	})

	t.Run("no auth factory", func(t *testing.T) {
		factory := NewConnectorFactory(nil)
		factory.Register(domain.ConnectorType{ID: "mock"}, nil)
		_, err := factory.Create(ctx, domain.Source{ID: "src", Type: "mock"})
		assert.Error(t, err)
	})
}

func TestConnectorFactory_SupportedTypesAndDescribe(t *testing.T) {
	factory := NewConnectorFactory(&syncMockAuthFactory{})
	for _, id := range []string{"tiktok_ads", "gorgias", "primer"} {
		factory.Register(domain.ConnectorType{ID: id, Resources: []string{"a", "b"}}, nil)
	}

	assert.Equal(t, []string{"gorgias", "primer", "tiktok_ads"}, factory.SupportedTypes())

	def, ok := factory.Describe("primer")
	require.True(t, ok)
	def.Resources[0] = "mutated"

	again, _ := factory.Describe("primer")
	assert.Equal(t, []string{"a", "b"}, again.Resources)

	_, ok = factory.Describe("ftp")
	assert.False(t, ok)
}
