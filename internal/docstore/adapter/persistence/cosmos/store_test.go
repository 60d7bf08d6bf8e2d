package cosmos

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccount struct {
	mock.Mock
}

func (m *mockAccount) CreateDatabase(ctx context.Context, database string) error {
	return m.Called(ctx, database).Error(0)
}

func (m *mockAccount) ReadDatabase(ctx context.Context, database string) error {
	return m.Called(ctx, database).Error(0)
}

func (m *mockAccount) CreateContainer(ctx context.Context, database, container, partitionKeyPath string) error {
	return m.Called(ctx, database, container, partitionKeyPath).Error(0)
}

func (m *mockAccount) ReadContainer(ctx context.Context, database, container string) (string, error) {
	args := m.Called(ctx, database, container)
	return args.String(0), args.Error(1)
}

func (m *mockAccount) QueryItems(ctx context.Context, database, container, query string, params []azcosmos.QueryParameter) ([][]byte, error) {
	args := m.Called(ctx, database, container, query, params)
	items, _ := args.Get(0).([][]byte)
	return items, args.Error(1)
}

func (m *mockAccount) ReadItem(ctx context.Context, database, container, id string, pk azcosmos.PartitionKey) ([]byte, error) {
	args := m.Called(ctx, database, container, id, pk)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Error(1)
}

func (m *mockAccount) UpsertItem(ctx context.Context, database, container string, pk azcosmos.PartitionKey, item []byte) error {
	return m.Called(ctx, database, container, pk, item).Error(0)
}

func responseError(status int, code string) error {
	req, _ := http.NewRequest(http.MethodPost, "https://account.documents.azure.com/dbs", nil)
	return &azcore.ResponseError{
		ErrorCode:  code,
		StatusCode: status,
		RawResponse: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Request:    req,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
		},
	}
}

func newTestContainer(api *mockAccount) *Container {
	client := newClient(api, logger.NewNopLogger())
	return &Container{client: client, database: "orders", name: "items", partitionKeyPath: "/customerId"}
}

func TestClient_CreateDatabase(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	api.On("CreateDatabase", ctx, "orders").Return(nil).Once()
	api.On("CreateDatabase", ctx, "orders").Return(responseError(http.StatusConflict, "Conflict")).Once()

	client := newClient(api, logger.NewNopLogger())

	db, err := client.CreateDatabase(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", db.Name())

	_, err = client.CreateDatabase(ctx, "orders")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	api.AssertExpectations(t)
}

func TestClient_CreateDatabase_OtherStatusPassesThrough(t *testing.T) {
	ctx := context.Background()
	throttled := responseError(http.StatusTooManyRequests, "TooManyRequests")
	api := new(mockAccount)
	api.On("CreateDatabase", ctx, "orders").Return(throttled)

	_, err := newClient(api, logger.NewNopLogger()).CreateDatabase(ctx, "orders")
	assert.Same(t, throttled, err)
}

func TestClient_GetDatabase_NotFound(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	api.On("ReadDatabase", ctx, "missing").Return(responseError(http.StatusNotFound, "NotFound"))

	_, err := newClient(api, logger.NewNopLogger()).GetDatabase(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.ErrorIs(t, err, errors.ErrDatabaseNotFound)
}

func TestDatabase_Containers(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	api.On("CreateContainer", ctx, "orders", "items", "/region").Return(responseError(http.StatusConflict, "Conflict"))
	api.On("ReadContainer", ctx, "orders", "items").Return("/customerId", nil)
	api.On("ReadContainer", ctx, "orders", "gone").Return("", responseError(http.StatusNotFound, "NotFound"))

	db := &Database{client: newClient(api, logger.NewNopLogger()), name: "orders"}

	_, err := db.CreateContainer(ctx, "items", "/region")
	assert.True(t, errors.IsConflict(err))

	c, err := db.GetContainer(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, "/customerId", c.PartitionKeyPath())

	_, err = db.GetContainer(ctx, "gone")
	assert.True(t, errors.IsNotFound(err))
}

func TestContainer_Query(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	params := []azcosmos.QueryParameter{{Name: "@id", Value: "1"}}
	api.On("QueryItems", ctx, "orders", "items", "SELECT * FROM c WHERE c.id = @id", params).
		Return([][]byte{[]byte(`{"id":"1","customerId":"A","amount":42}`)}, nil)

	docs, err := newTestContainer(api).Query(ctx, model.NewQuery("SELECT * FROM c WHERE c.id = @id", model.Param("id", "1")))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, model.Document{"id": "1", "customerId": "A", "amount": float64(42)}, docs[0])
}

func TestContainer_Query_MissingContainer(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	api.On("QueryItems", ctx, "orders", "items", model.SelectAll, []azcosmos.QueryParameter{}).
		Return(nil, responseError(http.StatusNotFound, "NotFound"))

	_, err := newTestContainer(api).Query(ctx, model.NewQuery(model.SelectAll))
	assert.True(t, errors.IsNotFound(err))
}

func TestContainer_ReadItem(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	api.On("ReadItem", ctx, "orders", "items", "1", azcosmos.NewPartitionKeyString("A")).
		Return([]byte(`{"id":"1","customerId":"A"}`), nil)
	api.On("ReadItem", ctx, "orders", "items", "1", azcosmos.NewPartitionKeyString("B")).
		Return(nil, responseError(http.StatusNotFound, "NotFound"))

	c := newTestContainer(api)

	doc, err := c.ReadItem(ctx, "1", "A")
	require.NoError(t, err)
	assert.Equal(t, "A", doc["customerId"])

	_, err = c.ReadItem(ctx, "1", "B")
	assert.True(t, errors.IsNotFound(err))

	_, err = c.ReadItem(ctx, "1", []string{"not", "a", "key"})
	assert.True(t, errors.IsValidation(err))
}

func TestContainer_UpsertItem(t *testing.T) {
	ctx := context.Background()
	api := new(mockAccount)
	doc := model.Document{"id": "1", "customerId": "A", "amount": 42}
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	api.On("UpsertItem", ctx, "orders", "items", azcosmos.NewPartitionKeyString("A"), body).Return(nil)

	stored, err := newTestContainer(api).UpsertItem(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, doc, stored)
	api.AssertExpectations(t)
}

func TestContainer_UpsertItem_Validation(t *testing.T) {
	c := newTestContainer(new(mockAccount))

	_, err := c.UpsertItem(context.Background(), model.Document{"customerId": "A"})
	assert.True(t, errors.IsValidation(err))

	_, err = c.UpsertItem(context.Background(), model.Document{"id": "1"})
	assert.True(t, errors.IsValidation(err))
	assert.ErrorIs(t, err, errors.ErrPartitionKeyMismatched)
}

func TestContainer_UpsertItem_StoreErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	tooLarge := responseError(http.StatusRequestEntityTooLarge, "RequestEntityTooLarge")
	api := new(mockAccount)
	api.On("UpsertItem", ctx, "orders", "items", mock.Anything, mock.Anything).Return(tooLarge)

	_, err := newTestContainer(api).UpsertItem(ctx, model.Document{"id": "1", "customerId": "A"})
	assert.Same(t, tooLarge, err)
}

func TestPartitionKeyFor(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected azcosmos.PartitionKey
	}{
		{"string", "A", azcosmos.NewPartitionKeyString("A")},
		{"bool", true, azcosmos.NewPartitionKeyBool(true)},
		{"float", 1.5, azcosmos.NewPartitionKeyNumber(1.5)},
		{"int", 7, azcosmos.NewPartitionKeyNumber(7)},
		{"int64", int64(7), azcosmos.NewPartitionKeyNumber(7)},
		{"json number", json.Number("3"), azcosmos.NewPartitionKeyNumber(3)},
		{"null", nil, azcosmos.NullPartitionKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := PartitionKeyFor(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pk)
		})
	}

	_, err := PartitionKeyFor(map[string]interface{}{})
	assert.True(t, errors.IsValidation(err))
}

func TestClassify_NonServiceErrors(t *testing.T) {
	plain := stderrors.New("dial tcp: connection refused")
	assert.Same(t, plain, classify(plain, "database 'x'", errors.ErrDatabaseNotFound))
}
