package di

import (
	"context"
	"testing"

	"cosmosdb-wrapper/internal/docstore/config"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewContainer(logger.NewNopLogger())

	assert.Error(t, c.HealthCheck(ctx), "not initialized yet")
	assert.Nil(t, c.GetDocstoreModule())

	require.NoError(t, c.InitializeDocstore(ctx, config.DefaultConfig()))
	require.NotNil(t, c.GetDocstoreModule())
	assert.Equal(t, config.BackendMemory, c.Config.Backend)
	assert.NoError(t, c.HealthCheck(ctx))

	assert.Error(t, c.InitializeDocstore(ctx, config.DefaultConfig()), "second initialization is rejected")

	require.NoError(t, c.Close())
	assert.Nil(t, c.GetDocstoreModule())
	assert.NoError(t, c.Cleanup(ctx), "cleanup is idempotent")
}

func TestContainer_RegistryCarriesOperationMetrics(t *testing.T) {
	ctx := context.Background()
	c := NewContainer(logger.NewNopLogger())
	require.NoError(t, c.InitializeDocstore(ctx, config.DefaultConfig()))
	defer c.Close()

	module := c.GetDocstoreModule()
	_, err := module.Usecase.ResolveDatabase(ctx, module.Client, "orders")
	require.NoError(t, err)

	families, err := c.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
	assert.Contains(t, names, "docstore_operations_total")
}

func TestContainer_InvalidConfig(t *testing.T) {
	c := NewContainer(logger.NewNopLogger())
	cfg := config.DefaultConfig()
	cfg.Backend = "cassandra"

	err := c.InitializeDocstore(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, c.GetDocstoreModule())
}
