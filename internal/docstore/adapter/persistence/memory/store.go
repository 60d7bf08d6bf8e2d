package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"cosmosdb-wrapper/internal/docstore/adapter/persistence/celfilter"
	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"go.uber.org/zap"
)

// Client is an in-process document store with the same create/lookup semantics as the
// hosted backends. Items are keyed by (partition-key value, id), so two items may share an
// id across partitions, as in Cosmos DB.
type Client struct {
	mu        sync.RWMutex
	databases map[string]*databaseState
	compiler  *celfilter.Compiler
	log       logger.Logger
}

type databaseState struct {
	name       string
	containers map[string]*containerState
}

type containerState struct {
	mu    sync.RWMutex
	props model.ContainerProperties
	items map[itemKey]model.Document
}

type itemKey struct {
	partition string
	id        string
}

// NewClient creates an empty in-memory store
func NewClient(log logger.Logger) (*Client, error) {
	compiler, err := celfilter.NewCompiler()
	if err != nil {
		return nil, err
	}
	return &Client{
		databases: make(map[string]*databaseState),
		compiler:  compiler,
		log:       log.WithComponent("memory-store"),
	}, nil
}

// CreateDatabase creates a database or reports a conflict when it exists
func (c *Client) CreateDatabase(ctx context.Context, name string) (repository.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.databases[name]; exists {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("database '%s'", name)).WithCause(errors.ErrAlreadyExists)
	}
	state := &databaseState{name: name, containers: make(map[string]*containerState)}
	c.databases[name] = state

	c.log.Debug("Database created", zap.String("database", name))
	return &Database{client: c, state: state}, nil
}

// GetDatabase returns a handle to an existing database
func (c *Client) GetDatabase(ctx context.Context, name string) (repository.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	state, exists := c.databases[name]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("database '%s'", name)).WithCause(errors.ErrDatabaseNotFound)
	}
	return &Database{client: c, state: state}, nil
}

// Close is a no-op for the in-memory store
func (c *Client) Close(context.Context) error {
	return nil
}

// Database is a handle to an in-memory database
type Database struct {
	client *Client
	state  *databaseState
}

// Name returns the database name
func (d *Database) Name() string {
	return d.state.name
}

// CreateContainer creates a container or reports a conflict when it exists
func (d *Database) CreateContainer(ctx context.Context, name, partitionKeyPath string) (repository.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.client.mu.Lock()
	defer d.client.mu.Unlock()

	if _, exists := d.client.databases[d.state.name]; !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("database '%s'", d.state.name)).WithCause(errors.ErrDatabaseNotFound)
	}
	if _, exists := d.state.containers[name]; exists {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("container '%s'", name)).WithCause(errors.ErrAlreadyExists)
	}

	state := &containerState{
		props: model.ContainerProperties{Name: name, PartitionKeyPath: partitionKeyPath},
		items: make(map[itemKey]model.Document),
	}
	d.state.containers[name] = state

	d.client.log.Debug("Container created",
		zap.String("database", d.state.name),
		zap.String("container", name),
		zap.String("partitionKeyPath", partitionKeyPath))
	return &Container{client: d.client, state: state}, nil
}

// GetContainer returns a handle to an existing container
func (d *Database) GetContainer(ctx context.Context, name string) (repository.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.client.mu.RLock()
	defer d.client.mu.RUnlock()

	state, exists := d.state.containers[name]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("container '%s'", name)).WithCause(errors.ErrContainerNotFound)
	}
	return &Container{client: d.client, state: state}, nil
}

// Container is a handle to an in-memory container
type Container struct {
	client *Client
	state  *containerState
}

// Name returns the container name
func (c *Container) Name() string {
	return c.state.props.Name
}

// PartitionKeyPath returns the path fixed at creation
func (c *Container) PartitionKeyPath() string {
	return c.state.props.PartitionKeyPath
}

// Query evaluates q against every item of the container. Results are ordered by id, then
// partition-key value.
func (c *Container) Query(ctx context.Context, q model.Query) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter, err := c.client.compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	c.state.mu.RLock()
	keys := make([]itemKey, 0, len(c.state.items))
	for key := range c.state.items {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].partition < keys[j].partition
	})

	results := make([]model.Document, 0)
	for _, key := range keys {
		doc := c.state.items[key]
		if filter.Match(doc) {
			results = append(results, doc.Clone())
		}
	}
	c.state.mu.RUnlock()

	return results, nil
}

// ReadItem returns the item stored under (partitionKey, id)
func (c *Container) ReadItem(ctx context.Context, id string, partitionKey interface{}) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := makeKey(partitionKey, id)
	if err != nil {
		return nil, err
	}

	c.state.mu.RLock()
	defer c.state.mu.RUnlock()

	doc, exists := c.state.items[key]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("item '%s'", id)).WithCause(errors.ErrItemNotFound)
	}
	return doc.Clone(), nil
}

// UpsertItem stores a copy of doc under its id and partition-key value
func (c *Container) UpsertItem(ctx context.Context, doc model.Document) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, ok := doc.ID()
	if !ok {
		return nil, errors.NewValidationError("item must have a non-empty string id").WithCause(errors.ErrMissingItemID)
	}
	// An item without the partition-key field lives in the undefined partition.
	pkValue, _ := doc.Lookup(c.state.props.PartitionKeyPath)
	key, err := makeKey(pkValue, id)
	if err != nil {
		return nil, err
	}

	stored := doc.Clone()

	c.state.mu.Lock()
	c.state.items[key] = stored
	c.state.mu.Unlock()

	return stored.Clone(), nil
}

// makeKey encodes a partition-key value so that "1" and 1 land in different partitions
func makeKey(partitionKey interface{}, id string) (itemKey, error) {
	encoded, err := json.Marshal(partitionKey)
	if err != nil {
		return itemKey{}, errors.NewValidationError(fmt.Sprintf("partition key value %v cannot be encoded", partitionKey)).WithCause(err)
	}
	return itemKey{partition: string(encoded), id: id}, nil
}
