package cosmos

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway answers the handful of REST calls the SDK account makes
type fakeGateway struct {
	mu            sync.Mutex
	continuations []string
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && (r.URL.Path == "" || r.URL.Path == "/"):
		_, _ = w.Write([]byte(`{"writableLocations":[],"readableLocations":[],"enableMultipleWriteLocations":false}`))
	case r.Method == http.MethodPost && r.URL.Path == "/dbs":
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"Conflict","message":"Entity with the specified id already exists in the system."}`))
	case r.Method == http.MethodGet && r.URL.Path == "/dbs/missing":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NotFound","message":"Owner resource does not exist"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/dbs/orders/colls/items/docs":
		token := r.Header.Get("x-ms-continuation")
		g.mu.Lock()
		g.continuations = append(g.continuations, token)
		g.mu.Unlock()
		if token == "" {
			w.Header().Set("x-ms-continuation", "page-2")
			_, _ = w.Write([]byte(`{"_rid":"r","Documents":[{"id":"1","customerId":"A"},{"id":"2","customerId":"B"}],"_count":2}`))
			return
		}
		_, _ = w.Write([]byte(`{"_rid":"r","Documents":[{"id":"3","customerId":"A"}],"_count":1}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"BadRequest","message":"unexpected request"}`))
	}
}

func newGatewayClient(t *testing.T) (*Client, *fakeGateway) {
	t.Helper()
	gateway := &fakeGateway{}
	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)

	key := base64.StdEncoding.EncodeToString([]byte("test-account-key"))
	client, err := NewClientWithKey(server.URL, key, logger.NewNopLogger())
	require.NoError(t, err)
	return client, gateway
}

func TestSDKAccount_CreateDatabaseConflict(t *testing.T) {
	client, _ := newGatewayClient(t)

	_, err := client.CreateDatabase(context.Background(), "orders")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestSDKAccount_ReadDatabaseNotFound(t *testing.T) {
	client, _ := newGatewayClient(t)

	_, err := client.GetDatabase(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.ErrorIs(t, err, errors.ErrDatabaseNotFound)
}

func TestSDKAccount_QueryDrainsEveryPage(t *testing.T) {
	client, gateway := newGatewayClient(t)
	c := &Container{client: client, database: "orders", name: "items", partitionKeyPath: "/customerId"}

	docs, err := c.Query(context.Background(), model.NewQuery(model.SelectAll))
	require.NoError(t, err)

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc.ID()
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	assert.Equal(t, []string{"", "page-2"}, gateway.continuations)
}
