package cosmos

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// accountAPI is the slice of the Cosmos DB account the store needs, keyed by names
type accountAPI interface {
	CreateDatabase(ctx context.Context, database string) error
	ReadDatabase(ctx context.Context, database string) error
	CreateContainer(ctx context.Context, database, container, partitionKeyPath string) error
	ReadContainer(ctx context.Context, database, container string) (string, error)
	QueryItems(ctx context.Context, database, container, query string, params []azcosmos.QueryParameter) ([][]byte, error)
	ReadItem(ctx context.Context, database, container, id string, pk azcosmos.PartitionKey) ([]byte, error)
	UpsertItem(ctx context.Context, database, container string, pk azcosmos.PartitionKey, item []byte) error
}

// sdkAccount implements accountAPI on the azcosmos client
type sdkAccount struct {
	client *azcosmos.Client
}

func (a *sdkAccount) CreateDatabase(ctx context.Context, database string) error {
	_, err := a.client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: database}, nil)
	return err
}

func (a *sdkAccount) ReadDatabase(ctx context.Context, database string) error {
	db, err := a.client.NewDatabase(database)
	if err != nil {
		return err
	}
	_, err = db.Read(ctx, nil)
	return err
}

func (a *sdkAccount) CreateContainer(ctx context.Context, database, container, partitionKeyPath string) error {
	db, err := a.client.NewDatabase(database)
	if err != nil {
		return err
	}
	_, err = db.CreateContainer(ctx, azcosmos.ContainerProperties{
		ID: container,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{partitionKeyPath},
		},
	}, nil)
	return err
}

func (a *sdkAccount) ReadContainer(ctx context.Context, database, container string) (string, error) {
	c, err := a.client.NewContainer(database, container)
	if err != nil {
		return "", err
	}
	resp, err := c.Read(ctx, nil)
	if err != nil {
		return "", err
	}
	if resp.ContainerProperties == nil || len(resp.ContainerProperties.PartitionKeyDefinition.Paths) == 0 {
		return "", fmt.Errorf("container '%s' reported no partition key", container)
	}
	return resp.ContainerProperties.PartitionKeyDefinition.Paths[0], nil
}

func (a *sdkAccount) QueryItems(ctx context.Context, database, container, query string, params []azcosmos.QueryParameter) ([][]byte, error) {
	c, err := a.client.NewContainer(database, container)
	if err != nil {
		return nil, err
	}

	// An empty partition key fans the query out across all partitions.
	pager := c.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), &azcosmos.QueryOptions{
		QueryParameters: params,
	})

	var items [][]byte
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (a *sdkAccount) ReadItem(ctx context.Context, database, container, id string, pk azcosmos.PartitionKey) ([]byte, error) {
	c, err := a.client.NewContainer(database, container)
	if err != nil {
		return nil, err
	}
	resp, err := c.ReadItem(ctx, pk, id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (a *sdkAccount) UpsertItem(ctx context.Context, database, container string, pk azcosmos.PartitionKey, item []byte) error {
	c, err := a.client.NewContainer(database, container)
	if err != nil {
		return err
	}
	_, err = c.UpsertItem(ctx, pk, item, nil)
	return err
}
