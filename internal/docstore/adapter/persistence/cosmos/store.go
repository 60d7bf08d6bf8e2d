package cosmos

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"go.uber.org/zap"
)

// Client is the Azure Cosmos DB store. A 409 from a create is reported as a conflict and a
// 404 as not found; every other service error is returned as is.
type Client struct {
	api accountAPI
	log logger.Logger
}

// NewClientFromConnectionString creates a store from an account connection string
func NewClientFromConnectionString(connectionString string, log logger.Logger) (*Client, error) {
	client, err := azcosmos.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cosmos DB client: %w", err)
	}
	return newClient(&sdkAccount{client: client}, log), nil
}

// NewClientWithKey creates a store from an account endpoint and key
func NewClientWithKey(endpoint, key string, log logger.Logger) (*Client, error) {
	cred, err := azcosmos.NewKeyCredential(key)
	if err != nil {
		return nil, fmt.Errorf("invalid Cosmos DB key: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cosmos DB client: %w", err)
	}
	return newClient(&sdkAccount{client: client}, log), nil
}

func newClient(api accountAPI, log logger.Logger) *Client {
	return &Client{api: api, log: log.WithComponent("cosmos-store")}
}

// Close is a no-op: the SDK client holds no resources that need releasing
func (c *Client) Close(context.Context) error {
	return nil
}

// CreateDatabase creates the database or reports a conflict when it exists
func (c *Client) CreateDatabase(ctx context.Context, name string) (repository.Database, error) {
	if err := c.api.CreateDatabase(ctx, name); err != nil {
		return nil, classify(err, fmt.Sprintf("database '%s'", name), errors.ErrDatabaseNotFound)
	}
	c.log.Debug("Database created", zap.String("database", name))
	return &Database{client: c, name: name}, nil
}

// GetDatabase reads the database to confirm it exists
func (c *Client) GetDatabase(ctx context.Context, name string) (repository.Database, error) {
	if err := c.api.ReadDatabase(ctx, name); err != nil {
		return nil, classify(err, fmt.Sprintf("database '%s'", name), errors.ErrDatabaseNotFound)
	}
	return &Database{client: c, name: name}, nil
}

// Database is a handle to a Cosmos DB database
type Database struct {
	client *Client
	name   string
}

// Name returns the database name
func (d *Database) Name() string {
	return d.name
}

// CreateContainer creates the container or reports a conflict when it exists
func (d *Database) CreateContainer(ctx context.Context, name, partitionKeyPath string) (repository.Container, error) {
	if err := d.client.api.CreateContainer(ctx, d.name, name, partitionKeyPath); err != nil {
		return nil, classify(err, fmt.Sprintf("container '%s'", name), errors.ErrContainerNotFound)
	}
	d.client.log.Debug("Container created",
		zap.String("database", d.name),
		zap.String("container", name),
		zap.String("partitionKeyPath", partitionKeyPath))
	return &Container{client: d.client, database: d.name, name: name, partitionKeyPath: partitionKeyPath}, nil
}

// GetContainer reads the container and its partition-key path
func (d *Database) GetContainer(ctx context.Context, name string) (repository.Container, error) {
	path, err := d.client.api.ReadContainer(ctx, d.name, name)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("container '%s'", name), errors.ErrContainerNotFound)
	}
	return &Container{client: d.client, database: d.name, name: name, partitionKeyPath: path}, nil
}

// Container is a handle to a Cosmos DB container
type Container struct {
	client           *Client
	database         string
	name             string
	partitionKeyPath string
}

// Name returns the container name
func (c *Container) Name() string {
	return c.name
}

// PartitionKeyPath returns the container's partition-key path
func (c *Container) PartitionKeyPath() string {
	return c.partitionKeyPath
}

// Query runs q across all partitions and drains every page
func (c *Container) Query(ctx context.Context, q model.Query) ([]model.Document, error) {
	params := make([]azcosmos.QueryParameter, 0, len(q.Parameters))
	for _, p := range q.Parameters {
		params = append(params, azcosmos.QueryParameter{Name: p.Name, Value: p.Value})
	}

	items, err := c.client.api.QueryItems(ctx, c.database, c.name, q.Text, params)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("container '%s'", c.name), errors.ErrContainerNotFound)
	}

	docs := make([]model.Document, 0, len(items))
	for _, raw := range items {
		var doc model.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode item from container '%s': %w", c.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadItem point-reads the item with id in the given partition
func (c *Container) ReadItem(ctx context.Context, id string, partitionKey interface{}) (model.Document, error) {
	pk, err := PartitionKeyFor(partitionKey)
	if err != nil {
		return nil, err
	}

	raw, err := c.client.api.ReadItem(ctx, c.database, c.name, id, pk)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("item '%s'", id), errors.ErrItemNotFound)
	}

	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode item '%s': %w", id, err)
	}
	return doc, nil
}

// UpsertItem writes doc into the partition named by its partition-key field
func (c *Container) UpsertItem(ctx context.Context, doc model.Document) (model.Document, error) {
	id, ok := doc.ID()
	if !ok {
		return nil, errors.NewValidationError("item must have a non-empty string id").WithCause(errors.ErrMissingItemID)
	}

	value, found := doc.Lookup(c.partitionKeyPath)
	if !found {
		return nil, errors.NewValidationError(
			fmt.Sprintf("item '%s' has no value at partition key path %s", id, c.partitionKeyPath)).
			WithCause(errors.ErrPartitionKeyMismatched)
	}
	pk, err := PartitionKeyFor(value)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("item '%s' cannot be encoded as JSON", id)).WithCause(err)
	}
	if err := c.client.api.UpsertItem(ctx, c.database, c.name, pk, body); err != nil {
		return nil, classify(err, fmt.Sprintf("container '%s'", c.name), errors.ErrContainerNotFound)
	}
	return doc.Clone(), nil
}

// PartitionKeyFor converts a JSON partition-key value into an SDK partition key
func PartitionKeyFor(value interface{}) (azcosmos.PartitionKey, error) {
	switch v := value.(type) {
	case nil:
		return azcosmos.NullPartitionKey, nil
	case string:
		return azcosmos.NewPartitionKeyString(v), nil
	case bool:
		return azcosmos.NewPartitionKeyBool(v), nil
	case float64:
		return azcosmos.NewPartitionKeyNumber(v), nil
	case float32:
		return azcosmos.NewPartitionKeyNumber(float64(v)), nil
	case int:
		return azcosmos.NewPartitionKeyNumber(float64(v)), nil
	case int32:
		return azcosmos.NewPartitionKeyNumber(float64(v)), nil
	case int64:
		return azcosmos.NewPartitionKeyNumber(float64(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			break
		}
		return azcosmos.NewPartitionKeyNumber(f), nil
	}
	return azcosmos.PartitionKey{}, errors.NewValidationError(
		fmt.Sprintf("partition key value of type %T is not a string, number, bool or null", value)).
		WithCause(errors.ErrInvalidInput)
}

// classify maps 409 to a conflict and 404 to not found. Other errors are returned unchanged.
func classify(err error, resource string, notFound error) error {
	var respErr *azcore.ResponseError
	if !stderrors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusConflict:
		return errors.NewAlreadyExistsError(resource).WithCause(err).WithCode(respErr.ErrorCode)
	case http.StatusNotFound:
		return errors.NewNotFoundError(resource).WithCause(stderrors.Join(notFound, err)).WithCode(respErr.ErrorCode)
	}
	return err
}
