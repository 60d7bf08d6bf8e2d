package usecase_test

import (
	"context"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateDatabase(ctx context.Context, name string) (repository.Database, error) {
	args := m.Called(ctx, name)
	db, _ := args.Get(0).(repository.Database)
	return db, args.Error(1)
}

func (m *MockClient) GetDatabase(ctx context.Context, name string) (repository.Database, error) {
	args := m.Called(ctx, name)
	db, _ := args.Get(0).(repository.Database)
	return db, args.Error(1)
}

func (m *MockClient) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockDatabase struct {
	mock.Mock
	name string
}

func (m *MockDatabase) Name() string {
	return m.name
}

func (m *MockDatabase) CreateContainer(ctx context.Context, name, partitionKeyPath string) (repository.Container, error) {
	args := m.Called(ctx, name, partitionKeyPath)
	c, _ := args.Get(0).(repository.Container)
	return c, args.Error(1)
}

func (m *MockDatabase) GetContainer(ctx context.Context, name string) (repository.Container, error) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(repository.Container)
	return c, args.Error(1)
}

type MockContainer struct {
	mock.Mock
	name             string
	partitionKeyPath string
}

func (m *MockContainer) Name() string {
	return m.name
}

func (m *MockContainer) PartitionKeyPath() string {
	return m.partitionKeyPath
}

func (m *MockContainer) Query(ctx context.Context, q model.Query) ([]model.Document, error) {
	args := m.Called(ctx, q)
	docs, _ := args.Get(0).([]model.Document)
	return docs, args.Error(1)
}

func (m *MockContainer) ReadItem(ctx context.Context, id string, partitionKey interface{}) (model.Document, error) {
	args := m.Called(ctx, id, partitionKey)
	doc, _ := args.Get(0).(model.Document)
	return doc, args.Error(1)
}

func (m *MockContainer) UpsertItem(ctx context.Context, doc model.Document) (model.Document, error) {
	args := m.Called(ctx, doc)
	stored, _ := args.Get(0).(model.Document)
	return stored, args.Error(1)
}
