package utils

import (
	"context"
	"testing"

	"cosmosdb-wrapper/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
)

func TestGetSetContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req1")
	ctx = WithDatabase(ctx, "orders")
	ctx = WithContainer(ctx, "items")
	ctx = WithOperation(ctx, "read_item")

	requestID, err := GetRequestIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "req1", requestID)

	database, err := GetDatabaseFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "orders", database)

	container, err := GetContainerFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "items", container)

	assert.Equal(t, "read_item", ctx.Value(contextkeys.OperationKey))
}

func TestGetContextValues_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := GetRequestIDFromContext(ctx)
	assert.ErrorIs(t, err, ErrRequestIDNotFound)
	_, err = GetDatabaseFromContext(ctx)
	assert.ErrorIs(t, err, ErrDatabaseNotFound)
	_, err = GetContainerFromContext(ctx)
	assert.ErrorIs(t, err, ErrContainerNotFound)

	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, 42)
	_, err = GetRequestIDFromContext(ctx)
	assert.ErrorIs(t, err, ErrRequestIDNotString)
}

func TestWithEmptyNamesLeavesContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithDatabase(ctx, ""))
	assert.Equal(t, ctx, WithContainer(ctx, ""))
}

func TestGetRequestIDOrDefault(t *testing.T) {
	assert.Equal(t, "none", GetRequestIDOrDefault(context.Background(), "none"))
	assert.Equal(t, "r", GetRequestIDOrDefault(WithRequestID(context.Background(), "r"), "none"))
}
