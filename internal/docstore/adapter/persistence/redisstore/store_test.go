package redisstore

import (
	"context"
	"testing"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client, err := NewClient(rdb, "test:", logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client, mr
}

func newTestContainer(t *testing.T) (*Client, repository.Container) {
	t.Helper()
	client, _ := newTestClient(t)
	ctx := context.Background()

	db, err := client.CreateDatabase(ctx, "orders")
	require.NoError(t, err)
	c, err := db.CreateContainer(ctx, "items", "/customerId")
	require.NoError(t, err)
	return client, c
}

func TestClient_CreateDatabase(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	db, err := client.CreateDatabase(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", db.Name())

	members, err := mr.Members("test:databases")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, members)

	_, err = client.CreateDatabase(ctx, "orders")
	assert.True(t, errors.IsConflict(err))

	_, err = client.GetDatabase(ctx, "orders")
	assert.NoError(t, err)

	_, err = client.GetDatabase(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestDatabase_CreateContainer(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	db, err := client.CreateDatabase(ctx, "orders")
	require.NoError(t, err)

	_, err = db.CreateContainer(ctx, "items", "/customerId")
	require.NoError(t, err)
	assert.Equal(t, "/customerId", mr.HGet("test:orders:containers", "items"))

	_, err = db.CreateContainer(ctx, "items", "/region")
	assert.True(t, errors.IsConflict(err))

	c, err := db.GetContainer(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, "/customerId", c.PartitionKeyPath())

	_, err = db.GetContainer(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestDatabase_CreateContainer_DroppedDatabase(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	db, err := client.CreateDatabase(ctx, "orders")
	require.NoError(t, err)
	mr.Del("test:databases")

	_, err = db.CreateContainer(ctx, "items", "/customerId")
	assert.True(t, errors.IsNotFound(err))
}

func TestContainer_UpsertReadQuery(t *testing.T) {
	_, c := newTestContainer(t)
	ctx := context.Background()

	stored, err := c.UpsertItem(ctx, model.Document{"id": "1", "customerId": "A", "amount": 42})
	require.NoError(t, err)
	assert.Equal(t, 42, stored["amount"])

	_, err = c.UpsertItem(ctx, model.Document{"id": "2", "customerId": "B", "amount": 7})
	require.NoError(t, err)

	doc, err := c.ReadItem(ctx, "1", "A")
	require.NoError(t, err)
	assert.Equal(t, "A", doc["customerId"])

	_, err = c.ReadItem(ctx, "1", "B")
	assert.True(t, errors.IsNotFound(err))

	all, err := c.Query(ctx, model.NewQuery(model.SelectAll))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	big, err := c.Query(ctx, model.NewQuery("SELECT * FROM c WHERE c.amount > @min", model.Param("min", 10)))
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, "1", big[0]["id"])
}

func TestContainer_UpsertReturnsDocumentAsWritten(t *testing.T) {
	_, c := newTestContainer(t)
	ctx := context.Background()

	doc := model.Document{"id": "1", "customerId": "A", "amount": 42, "meta": map[string]interface{}{"n": 1}}
	stored, err := c.UpsertItem(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, doc, stored)

	doc["meta"].(map[string]interface{})["n"] = 2
	assert.Equal(t, 1, stored["meta"].(map[string]interface{})["n"])

	read, err := c.ReadItem(ctx, "1", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(42), read["amount"])
}

func TestContainer_UpsertReplaces(t *testing.T) {
	_, c := newTestContainer(t)
	ctx := context.Background()

	_, err := c.UpsertItem(ctx, model.Document{"id": "1", "customerId": "A", "note": "first"})
	require.NoError(t, err)
	_, err = c.UpsertItem(ctx, model.Document{"id": "1", "customerId": "A"})
	require.NoError(t, err)

	doc, err := c.ReadItem(ctx, "1", "A")
	require.NoError(t, err)
	_, hasNote := doc["note"]
	assert.False(t, hasNote)
}

func TestContainer_SameIDInTwoPartitions(t *testing.T) {
	_, c := newTestContainer(t)
	ctx := context.Background()

	_, err := c.UpsertItem(ctx, model.Document{"id": "1", "customerId": "A"})
	require.NoError(t, err)
	_, err = c.UpsertItem(ctx, model.Document{"id": "1", "customerId": "B"})
	require.NoError(t, err)

	docs, err := c.Query(ctx, model.NewQuery("SELECT * FROM c WHERE c.id = @id", model.Param("id", "1")))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestContainer_QuerySkipsCorruptItems(t *testing.T) {
	_, c := newTestContainer(t)
	client := c.(*Container).client
	ctx := context.Background()

	_, err := c.UpsertItem(ctx, model.Document{"id": "1", "customerId": "A"})
	require.NoError(t, err)
	require.NoError(t, client.rdb.HSet(ctx, "test:orders:items:items", "junk", "{not json").Err())

	docs, err := c.Query(ctx, model.NewQuery(model.SelectAll))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestContainer_UpsertRequiresID(t *testing.T) {
	_, c := newTestContainer(t)

	_, err := c.UpsertItem(context.Background(), model.Document{"customerId": "A"})
	assert.True(t, errors.IsValidation(err))
}

func TestContainer_StoreErrorsPassThrough(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	mr.SetError("ERR quota exceeded")
	_, err := client.CreateDatabase(ctx, "orders")
	require.Error(t, err)
	assert.False(t, errors.IsConflict(err))
	assert.False(t, errors.IsNotFound(err))
	mr.SetError("")
}

func TestClient_Ping(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}
