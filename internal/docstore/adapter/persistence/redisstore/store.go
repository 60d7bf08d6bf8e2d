package redisstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"cosmosdb-wrapper/internal/docstore/adapter/persistence/celfilter"
	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fieldSeparator joins the encoded partition-key value and the item id in a hash field
const fieldSeparator = "\x1f"

// Client stores databases, containers and items in Redis:
//
//	{prefix}databases                   set of database names
//	{prefix}{db}:containers             hash container name -> partition-key path
//	{prefix}{db}:{container}:items      hash <json pk value>\x1f<id> -> JSON document
//
// SADD and HSETNX make creation atomic, so a second create reports a conflict.
type Client struct {
	rdb      redis.UniversalClient
	prefix   string
	compiler *celfilter.Compiler
	log      logger.Logger
}

// NewClient creates a Redis-backed store using rdb. Keys are prefixed with prefix.
func NewClient(rdb redis.UniversalClient, prefix string, log logger.Logger) (*Client, error) {
	compiler, err := celfilter.NewCompiler()
	if err != nil {
		return nil, err
	}
	return &Client{
		rdb:      rdb,
		prefix:   prefix,
		compiler: compiler,
		log:      log.WithComponent("redis-store"),
	}, nil
}

func (c *Client) databasesKey() string {
	return c.prefix + "databases"
}

func (c *Client) containersKey(db string) string {
	return c.prefix + db + ":containers"
}

func (c *Client) itemsKey(db, container string) string {
	return c.prefix + db + ":" + container + ":items"
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client
func (c *Client) Close(context.Context) error {
	return c.rdb.Close()
}

// CreateDatabase adds the database or reports a conflict when it exists
func (c *Client) CreateDatabase(ctx context.Context, name string) (repository.Database, error) {
	added, err := c.rdb.SAdd(ctx, c.databasesKey(), name).Result()
	if err != nil {
		c.log.Error("Failed to create database", zap.String("database", name), zap.Error(err))
		return nil, err
	}
	if added == 0 {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("database '%s'", name)).WithCause(errors.ErrAlreadyExists)
	}

	c.log.Debug("Database created", zap.String("database", name))
	return &Database{client: c, name: name}, nil
}

// GetDatabase returns a handle to an existing database
func (c *Client) GetDatabase(ctx context.Context, name string) (repository.Database, error) {
	exists, err := c.rdb.SIsMember(ctx, c.databasesKey(), name).Result()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("database '%s'", name)).WithCause(errors.ErrDatabaseNotFound)
	}
	return &Database{client: c, name: name}, nil
}

// Database is a handle to a database stored in Redis
type Database struct {
	client *Client
	name   string
}

// Name returns the database name
func (d *Database) Name() string {
	return d.name
}

// CreateContainer records the container and its partition-key path, or reports a conflict
func (d *Database) CreateContainer(ctx context.Context, name, partitionKeyPath string) (repository.Container, error) {
	if _, err := d.client.GetDatabase(ctx, d.name); err != nil {
		return nil, err
	}

	set, err := d.client.rdb.HSetNX(ctx, d.client.containersKey(d.name), name, partitionKeyPath).Result()
	if err != nil {
		d.client.log.Error("Failed to create container",
			zap.String("database", d.name),
			zap.String("container", name),
			zap.Error(err))
		return nil, err
	}
	if !set {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("container '%s'", name)).WithCause(errors.ErrAlreadyExists)
	}

	d.client.log.Debug("Container created",
		zap.String("database", d.name),
		zap.String("container", name),
		zap.String("partitionKeyPath", partitionKeyPath))
	return d.container(name, partitionKeyPath), nil
}

// GetContainer returns a handle to an existing container
func (d *Database) GetContainer(ctx context.Context, name string) (repository.Container, error) {
	path, err := d.client.rdb.HGet(ctx, d.client.containersKey(d.name), name).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("container '%s'", name)).WithCause(errors.ErrContainerNotFound)
	}
	if err != nil {
		return nil, err
	}
	return d.container(name, path), nil
}

func (d *Database) container(name, partitionKeyPath string) *Container {
	return &Container{
		client:           d.client,
		database:         d.name,
		name:             name,
		partitionKeyPath: partitionKeyPath,
		key:              d.client.itemsKey(d.name, name),
	}
}

// Container is a handle to a container stored in Redis
type Container struct {
	client           *Client
	database         string
	name             string
	partitionKeyPath string
	key              string
}

// Name returns the container name
func (c *Container) Name() string {
	return c.name
}

// PartitionKeyPath returns the path recorded at creation
func (c *Container) PartitionKeyPath() string {
	return c.partitionKeyPath
}

// Query loads every item of the container and filters them in process. Results are
// ordered by hash field.
func (c *Container) Query(ctx context.Context, q model.Query) ([]model.Document, error) {
	filter, err := c.client.compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	entries, err := c.client.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		c.client.log.Error("Failed to load items",
			zap.String("container", c.name),
			zap.Error(err))
		return nil, err
	}

	fields := make([]string, 0, len(entries))
	for field := range entries {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	results := make([]model.Document, 0)
	for _, field := range fields {
		doc, err := decode(entries[field])
		if err != nil {
			c.client.log.Warn("Skipping undecodable item",
				zap.String("container", c.name),
				zap.String("field", strings.ReplaceAll(field, fieldSeparator, "/")),
				zap.Error(err))
			continue
		}
		if filter.Match(doc) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// ReadItem returns the item stored under (partitionKey, id)
func (c *Container) ReadItem(ctx context.Context, id string, partitionKey interface{}) (model.Document, error) {
	field, err := itemField(partitionKey, id)
	if err != nil {
		return nil, err
	}

	raw, err := c.client.rdb.HGet(ctx, c.key, field).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("item '%s'", id)).WithCause(errors.ErrItemNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// UpsertItem writes doc under its id and partition-key value, replacing any previous version,
// and returns a copy of doc as written
func (c *Container) UpsertItem(ctx context.Context, doc model.Document) (model.Document, error) {
	id, ok := doc.ID()
	if !ok {
		return nil, errors.NewValidationError("item must have a non-empty string id").WithCause(errors.ErrMissingItemID)
	}
	pkValue, _ := doc.Lookup(c.partitionKeyPath)
	field, err := itemField(pkValue, id)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("item '%s' cannot be encoded as JSON", id)).WithCause(err)
	}
	if err := c.client.rdb.HSet(ctx, c.key, field, raw).Err(); err != nil {
		c.client.log.Error("Failed to upsert item",
			zap.String("container", c.name),
			zap.String("id", id),
			zap.Error(err))
		return nil, err
	}
	return doc.Clone(), nil
}

func itemField(partitionKey interface{}, id string) (string, error) {
	encoded, err := json.Marshal(partitionKey)
	if err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("partition key value %v cannot be encoded", partitionKey)).WithCause(err)
	}
	return string(encoded) + fieldSeparator + id, nil
}

func decode(raw string) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return doc, nil
}
