package usecase

import (
	"context"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
)

// Future is the pending result of an operation started by AsyncDocumentUsecase
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func runAsync[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Done is closed once the operation has finished
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await suspends until the operation finishes or ctx ends. When ctx ends first the
// operation keeps running; its own context decides when it stops.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncDocumentUsecase exposes the DocumentUsecase operations as futures. Each call starts
// one goroutine running the synchronous operation, so results and errors are identical.
type AsyncDocumentUsecase struct {
	sync DocumentUsecase
}

// NewAsyncDocumentUsecase wraps a synchronous usecase
func NewAsyncDocumentUsecase(sync DocumentUsecase) *AsyncDocumentUsecase {
	return &AsyncDocumentUsecase{sync: sync}
}

// ResolveDatabase starts DocumentUsecase.ResolveDatabase
func (a *AsyncDocumentUsecase) ResolveDatabase(ctx context.Context, client repository.Client, name string) *Future[repository.Database] {
	return runAsync(func() (repository.Database, error) {
		return a.sync.ResolveDatabase(ctx, client, name)
	})
}

// ResolveContainer starts DocumentUsecase.ResolveContainer
func (a *AsyncDocumentUsecase) ResolveContainer(ctx context.Context, db repository.Database, name, partitionKeyPath string) *Future[repository.Container] {
	return runAsync(func() (repository.Container, error) {
		return a.sync.ResolveContainer(ctx, db, name, partitionKeyPath)
	})
}

// OpenDatabase starts DocumentUsecase.OpenDatabase
func (a *AsyncDocumentUsecase) OpenDatabase(ctx context.Context, client repository.Client, name string) *Future[repository.Database] {
	return runAsync(func() (repository.Database, error) {
		return a.sync.OpenDatabase(ctx, client, name)
	})
}

// OpenContainer starts DocumentUsecase.OpenContainer
func (a *AsyncDocumentUsecase) OpenContainer(ctx context.Context, db repository.Database, name string) *Future[repository.Container] {
	return runAsync(func() (repository.Container, error) {
		return a.sync.OpenContainer(ctx, db, name)
	})
}

// QueryItems starts DocumentUsecase.QueryItems
func (a *AsyncDocumentUsecase) QueryItems(ctx context.Context, container repository.Container, q model.Query) *Future[[]model.Document] {
	return runAsync(func() ([]model.Document, error) {
		return a.sync.QueryItems(ctx, container, q)
	})
}

// ReadAllItems starts DocumentUsecase.ReadAllItems
func (a *AsyncDocumentUsecase) ReadAllItems(ctx context.Context, container repository.Container) *Future[[]model.Document] {
	return runAsync(func() ([]model.Document, error) {
		return a.sync.ReadAllItems(ctx, container)
	})
}

// GetItemByID starts DocumentUsecase.GetItemByID
func (a *AsyncDocumentUsecase) GetItemByID(ctx context.Context, container repository.Container, id string) *Future[model.Document] {
	return runAsync(func() (model.Document, error) {
		return a.sync.GetItemByID(ctx, container, id)
	})
}

// GetItemByURI starts DocumentUsecase.GetItemByURI
func (a *AsyncDocumentUsecase) GetItemByURI(ctx context.Context, container repository.Container, uri string) *Future[model.Document] {
	return runAsync(func() (model.Document, error) {
		return a.sync.GetItemByURI(ctx, container, uri)
	})
}

// ReadItem starts DocumentUsecase.ReadItem
func (a *AsyncDocumentUsecase) ReadItem(ctx context.Context, container repository.Container, id string, partitionKey interface{}) *Future[model.Document] {
	return runAsync(func() (model.Document, error) {
		return a.sync.ReadItem(ctx, container, id, partitionKey)
	})
}

// CreateItem starts DocumentUsecase.CreateItem. doc must not be touched until the future is done.
func (a *AsyncDocumentUsecase) CreateItem(ctx context.Context, container repository.Container, doc model.Document) *Future[model.Document] {
	return runAsync(func() (model.Document, error) {
		return a.sync.CreateItem(ctx, container, doc)
	})
}
