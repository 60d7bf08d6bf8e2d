package mongodb

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// databaseMarkerID is the metadata document that records a database's creation
	databaseMarkerID = "database"
	// containerIDPrefix prefixes the metadata document of each container
	containerIDPrefix = "container:"

	// codeNamespaceExists is returned by create on an existing collection
	codeNamespaceExists = 48
)

// metadataEntry is a document of a database's metadata collection
type metadataEntry struct {
	ID               string    `bson:"_id"`
	Kind             string    `bson:"kind"`
	Name             string    `bson:"name"`
	PartitionKeyPath string    `bson:"partition_key_path,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
}

// Client stores documents in MongoDB or the Cosmos DB API for MongoDB.
//
// MongoDB creates databases and collections implicitly, so each database keeps a metadata
// collection. Inserting the marker document is the authoritative create: a duplicate key
// means the database or container already exists. Items are stored with _id = id.
type Client struct {
	client             *mongo.Client
	metadataCollection string
	log                logger.Logger
}

// NewClient wraps a connected *mongo.Client
func NewClient(client *mongo.Client, metadataCollection string, log logger.Logger) *Client {
	if metadataCollection == "" {
		metadataCollection = "_metadata"
	}
	return &Client{
		client:             client,
		metadataCollection: metadataCollection,
		log:                log.WithComponent("mongodb-store"),
	}
}

// Connect dials uri and verifies the connection
func Connect(ctx context.Context, uri, metadataCollection string, log logger.Logger) (*Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return NewClient(client, metadataCollection, log), nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close disconnects from the server
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) database(name string) *Database {
	db := c.client.Database(name)
	return &Database{
		client:   c,
		db:       db,
		metadata: NewMongoCollectionAdapter(db.Collection(c.metadataCollection)),
		collection: func(container string) CollectionInterface {
			return NewMongoCollectionAdapter(db.Collection(container))
		},
	}
}

// CreateDatabase records the database or reports a conflict when it exists
func (c *Client) CreateDatabase(ctx context.Context, name string) (repository.Database, error) {
	db := c.database(name)
	_, err := db.metadata.InsertOne(ctx, metadataEntry{
		ID:        databaseMarkerID,
		Kind:      "database",
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.NewAlreadyExistsError(fmt.Sprintf("database '%s'", name)).WithCause(err)
		}
		return nil, err
	}
	return db, nil
}

// GetDatabase returns a handle to a database created through this store
func (c *Client) GetDatabase(ctx context.Context, name string) (repository.Database, error) {
	db := c.database(name)
	var entry metadataEntry
	err := db.metadata.FindOne(ctx, bson.M{"_id": databaseMarkerID}).Decode(&entry)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("database '%s'", name)).WithCause(errors.ErrDatabaseNotFound)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Database is a handle to a MongoDB database
type Database struct {
	client     *Client
	db         *mongo.Database
	metadata   CollectionInterface
	collection func(name string) CollectionInterface
}

// Name returns the database name
func (d *Database) Name() string {
	return d.db.Name()
}

// CreateContainer records the container with its partition-key path and creates its collection
func (d *Database) CreateContainer(ctx context.Context, name, partitionKeyPath string) (repository.Container, error) {
	_, err := d.metadata.InsertOne(ctx, metadataEntry{
		ID:               containerIDPrefix + name,
		Kind:             "container",
		Name:             name,
		PartitionKeyPath: partitionKeyPath,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.NewAlreadyExistsError(fmt.Sprintf("container '%s'", name)).WithCause(err)
		}
		return nil, err
	}

	if err := d.db.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
		return nil, err
	}

	return d.container(name, partitionKeyPath), nil
}

// GetContainer returns a handle to a container created through this store
func (d *Database) GetContainer(ctx context.Context, name string) (repository.Container, error) {
	var entry metadataEntry
	err := d.metadata.FindOne(ctx, bson.M{"_id": containerIDPrefix + name}).Decode(&entry)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("container '%s'", name)).WithCause(errors.ErrContainerNotFound)
	}
	if err != nil {
		return nil, err
	}
	return d.container(name, entry.PartitionKeyPath), nil
}

func (d *Database) container(name, partitionKeyPath string) *Container {
	return &Container{
		name:             name,
		partitionKeyPath: partitionKeyPath,
		col:              d.collection(name),
	}
}

// Container is a handle to a MongoDB collection
type Container struct {
	name             string
	partitionKeyPath string
	col              CollectionInterface
}

// Name returns the container name
func (c *Container) Name() string {
	return c.name
}

// PartitionKeyPath returns the path recorded at creation
func (c *Container) PartitionKeyPath() string {
	return c.partitionKeyPath
}

// Query runs q as a find over the whole collection, ordered by _id
func (c *Container) Query(ctx context.Context, q model.Query) ([]model.Document, error) {
	filter, err := BuildFilter(q)
	if err != nil {
		return nil, err
	}

	cur, err := c.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]model.Document, 0)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		results = append(results, toDocument(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ReadItem returns the item with the given id when its partition-key value matches
func (c *Container) ReadItem(ctx context.Context, id string, partitionKey interface{}) (model.Document, error) {
	var raw bson.M
	err := c.col.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("item '%s'", id)).WithCause(errors.ErrItemNotFound)
	}
	if err != nil {
		return nil, err
	}

	doc := toDocument(raw)
	stored, _ := doc.Lookup(c.partitionKeyPath)
	if !samePartition(stored, partitionKey) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("item '%s'", id)).WithCause(errors.ErrPartitionKeyMismatched)
	}
	return doc, nil
}

// UpsertItem replaces the item with the same id, inserting it if absent
func (c *Container) UpsertItem(ctx context.Context, doc model.Document) (model.Document, error) {
	id, ok := doc.ID()
	if !ok {
		return nil, errors.NewValidationError("item must have a non-empty string id").WithCause(errors.ErrMissingItemID)
	}

	replacement := doc.Clone()
	replacement["_id"] = id

	if _, err := c.col.ReplaceOne(ctx, bson.M{"_id": id}, replacement, options.Replace().SetUpsert(true)); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return stderrors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists
}

// samePartition compares partition-key values by their JSON encoding, so 1, int64(1) and
// 1.0 are the same partition while "1" is not
func samePartition(a, b interface{}) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}

// toDocument converts a decoded BSON document into plain Go values and drops _id
func toDocument(raw bson.M) model.Document {
	doc := make(model.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = fromBSON(v)
	}
	return doc
}

func fromBSON(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i := range val {
			out[i] = fromBSON(val[i])
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int64(val)
	default:
		return val
	}
}
