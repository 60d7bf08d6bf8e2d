package repository

import (
	"context"

	"cosmosdb-wrapper/internal/docstore/domain/model"
)

// Client is the document store's account-level entry point.
//
// CreateDatabase must report an existing database with an error for which
// errors.IsConflict is true. GetDatabase reports a missing one with an error for which
// errors.IsNotFound is true. Every other error is returned as the driver produced it.
type Client interface {
	CreateDatabase(ctx context.Context, name string) (Database, error)
	GetDatabase(ctx context.Context, name string) (Database, error)
	Close(ctx context.Context) error
}

// Database is a handle to a named logical database.
type Database interface {
	Name() string
	// CreateContainer reports an existing container as a conflict; it never changes the
	// partition-key path of an existing container.
	CreateContainer(ctx context.Context, name, partitionKeyPath string) (Container, error)
	GetContainer(ctx context.Context, name string) (Container, error)
}

// Container is a handle to a named container within a database.
type Container interface {
	Name() string
	PartitionKeyPath() string
	// Query runs across all partitions and returns every match.
	Query(ctx context.Context, query model.Query) ([]model.Document, error)
	// ReadItem is a point read by id and partition-key value; a miss is reported as not found.
	ReadItem(ctx context.Context, id string, partitionKey interface{}) (model.Document, error)
	// UpsertItem inserts the document or replaces the one with the same id.
	UpsertItem(ctx context.Context, doc model.Document) (model.Document, error)
}
