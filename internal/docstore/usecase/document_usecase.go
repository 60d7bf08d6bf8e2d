package usecase

import (
	"context"
	"fmt"
	"time"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"
	"cosmosdb-wrapper/internal/shared/metrics"
	"cosmosdb-wrapper/internal/shared/utils"

	"go.uber.org/zap"
)

// Operation names used for logging and metrics
const (
	OpResolveDatabase  = "resolve_database"
	OpResolveContainer = "resolve_container"
	OpOpenDatabase     = "open_database"
	OpOpenContainer    = "open_container"
	OpQueryItems       = "query_items"
	OpReadAllItems     = "read_all_items"
	OpGetItemByID      = "get_item_by_id"
	OpGetItemByURI     = "get_item_by_uri"
	OpReadItem         = "read_item"
	OpCreateItem       = "create_item"
)

// Queries issued by the single-item accessors
const (
	queryByID  = "SELECT * FROM c WHERE c.id = @id"
	queryByURI = "SELECT * FROM c WHERE c.uri = @uri"
)

// DocumentUsecase defines the helper operations over a document store.
// Every method blocks until the store answers.
type DocumentUsecase interface {
	// ResolveDatabase returns the named database, creating it if absent.
	ResolveDatabase(ctx context.Context, client repository.Client, name string) (repository.Database, error)
	// ResolveContainer returns the named container, creating it with partitionKeyPath if absent.
	// An existing container keeps its original partition-key path.
	ResolveContainer(ctx context.Context, db repository.Database, name, partitionKeyPath string) (repository.Container, error)
	// OpenDatabase looks up an existing database without creating it.
	OpenDatabase(ctx context.Context, client repository.Client, name string) (repository.Database, error)
	// OpenContainer looks up an existing container without creating it.
	OpenContainer(ctx context.Context, db repository.Database, name string) (repository.Container, error)

	// QueryItems runs q across all partitions and returns every match.
	QueryItems(ctx context.Context, container repository.Container, q model.Query) ([]model.Document, error)
	// ReadAllItems returns every document of the container.
	ReadAllItems(ctx context.Context, container repository.Container) ([]model.Document, error)
	// GetItemByID returns the document whose id is id, or nil.
	GetItemByID(ctx context.Context, container repository.Container, id string) (model.Document, error)
	// GetItemByURI returns the document whose uri field is uri, or nil.
	GetItemByURI(ctx context.Context, container repository.Container, uri string) (model.Document, error)
	// ReadItem point-reads a document by id and partition-key value, or returns nil.
	ReadItem(ctx context.Context, container repository.Container, id string, partitionKey interface{}) (model.Document, error)
	// CreateItem upserts doc, stamping it first when stamping is enabled.
	CreateItem(ctx context.Context, container repository.Container, doc model.Document) (model.Document, error)
}

// Options configures a DocumentUsecase
type Options struct {
	StampOnWrite    bool
	LastUpdateField string
	Metrics         *metrics.Recorder
	// Now overrides the clock used for stamping. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions stamps "last_update" on every upsert and records no metrics
func DefaultOptions() Options {
	return Options{
		StampOnWrite:    true,
		LastUpdateField: "last_update",
	}
}

type documentUsecaseImpl struct {
	log             logger.Logger
	metrics         *metrics.Recorder
	stampOnWrite    bool
	lastUpdateField string
	now             func() time.Time
}

// NewDocumentUsecase creates a new DocumentUsecase
func NewDocumentUsecase(log logger.Logger, opts Options) DocumentUsecase {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LastUpdateField == "" {
		opts.LastUpdateField = "last_update"
	}
	return &documentUsecaseImpl{
		log:             log.WithComponent("docstore-usecase"),
		metrics:         opts.Metrics,
		stampOnWrite:    opts.StampOnWrite,
		lastUpdateField: opts.LastUpdateField,
		now:             opts.Now,
	}
}

func (uc *documentUsecaseImpl) ResolveDatabase(ctx context.Context, client repository.Client, name string) (repository.Database, error) {
	start := time.Now()
	if name == "" {
		uc.observe(OpResolveDatabase, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("database name must not be empty").WithCause(errors.ErrInvalidInput)
	}

	log := uc.log.WithContext(withScope(ctx, OpResolveDatabase, name, ""))
	log.Debug("Creating database", zap.String("database", name))

	db, err := client.CreateDatabase(ctx, name)
	if err == nil {
		log.Info("Database created", zap.String("database", name))
		uc.observe(OpResolveDatabase, metrics.OutcomeCreated, start)
		return db, nil
	}
	if !errors.IsConflict(err) {
		log.Error("Failed to create database", zap.String("database", name), zap.Error(err))
		uc.observe(OpResolveDatabase, metrics.OutcomeError, start)
		return nil, err
	}

	log.Debug("Database already exists, looking it up", zap.String("database", name))
	db, err = client.GetDatabase(ctx, name)
	if err != nil {
		log.Error("Failed to get existing database", zap.String("database", name), zap.Error(err))
		uc.observe(OpResolveDatabase, metrics.OutcomeError, start)
		return nil, err
	}
	uc.observe(OpResolveDatabase, metrics.OutcomeExisting, start)
	return db, nil
}

func (uc *documentUsecaseImpl) ResolveContainer(ctx context.Context, db repository.Database, name, partitionKeyPath string) (repository.Container, error) {
	start := time.Now()
	if name == "" {
		uc.observe(OpResolveContainer, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("container name must not be empty").WithCause(errors.ErrInvalidInput)
	}
	if err := model.ValidatePartitionKeyPath(partitionKeyPath); err != nil {
		uc.observe(OpResolveContainer, metrics.OutcomeError, start)
		return nil, errors.NewValidationError(err.Error()).WithCause(errors.ErrInvalidInput)
	}

	log := uc.log.WithContext(withScope(ctx, OpResolveContainer, db.Name(), name))
	log.Debug("Creating container",
		zap.String("container", name),
		zap.String("partitionKeyPath", partitionKeyPath))

	container, err := db.CreateContainer(ctx, name, partitionKeyPath)
	if err == nil {
		log.Info("Container created", zap.String("container", name))
		uc.observe(OpResolveContainer, metrics.OutcomeCreated, start)
		return container, nil
	}
	if !errors.IsConflict(err) {
		log.Error("Failed to create container", zap.String("container", name), zap.Error(err))
		uc.observe(OpResolveContainer, metrics.OutcomeError, start)
		return nil, err
	}

	log.Debug("Container already exists, looking it up", zap.String("container", name))
	container, err = db.GetContainer(ctx, name)
	if err != nil {
		log.Error("Failed to get existing container", zap.String("container", name), zap.Error(err))
		uc.observe(OpResolveContainer, metrics.OutcomeError, start)
		return nil, err
	}
	if existing := container.PartitionKeyPath(); existing != partitionKeyPath {
		log.Warn("Existing container keeps its partition key path",
			zap.String("container", name),
			zap.String("requested", partitionKeyPath),
			zap.String("existing", existing))
	}
	uc.observe(OpResolveContainer, metrics.OutcomeExisting, start)
	return container, nil
}

func (uc *documentUsecaseImpl) OpenDatabase(ctx context.Context, client repository.Client, name string) (repository.Database, error) {
	start := time.Now()
	if name == "" {
		uc.observe(OpOpenDatabase, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("database name must not be empty").WithCause(errors.ErrInvalidInput)
	}

	db, err := client.GetDatabase(ctx, name)
	if err != nil {
		uc.observe(OpOpenDatabase, outcomeOf(err), start)
		return nil, err
	}
	uc.observe(OpOpenDatabase, metrics.OutcomeSuccess, start)
	return db, nil
}

func (uc *documentUsecaseImpl) OpenContainer(ctx context.Context, db repository.Database, name string) (repository.Container, error) {
	start := time.Now()
	if name == "" {
		uc.observe(OpOpenContainer, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("container name must not be empty").WithCause(errors.ErrInvalidInput)
	}

	container, err := db.GetContainer(ctx, name)
	if err != nil {
		uc.observe(OpOpenContainer, outcomeOf(err), start)
		return nil, err
	}
	uc.observe(OpOpenContainer, metrics.OutcomeSuccess, start)
	return container, nil
}

func (uc *documentUsecaseImpl) QueryItems(ctx context.Context, container repository.Container, q model.Query) ([]model.Document, error) {
	start := time.Now()
	docs, err := uc.query(ctx, OpQueryItems, container, q)
	uc.observeResult(OpQueryItems, err, len(docs) == 0, start)
	return docs, err
}

func (uc *documentUsecaseImpl) ReadAllItems(ctx context.Context, container repository.Container) ([]model.Document, error) {
	start := time.Now()
	docs, err := uc.query(ctx, OpReadAllItems, container, model.NewQuery(model.SelectAll))
	uc.observeResult(OpReadAllItems, err, len(docs) == 0, start)
	return docs, err
}

func (uc *documentUsecaseImpl) GetItemByID(ctx context.Context, container repository.Container, id string) (model.Document, error) {
	start := time.Now()
	doc, err := uc.getUnique(ctx, OpGetItemByID, container, model.IDField, id, model.NewQuery(queryByID, model.Param("id", id)))
	uc.observeResult(OpGetItemByID, err, doc == nil, start)
	return doc, err
}

func (uc *documentUsecaseImpl) GetItemByURI(ctx context.Context, container repository.Container, uri string) (model.Document, error) {
	start := time.Now()
	doc, err := uc.getUnique(ctx, OpGetItemByURI, container, model.URIField, uri, model.NewQuery(queryByURI, model.Param("uri", uri)))
	uc.observeResult(OpGetItemByURI, err, doc == nil, start)
	return doc, err
}

func (uc *documentUsecaseImpl) ReadItem(ctx context.Context, container repository.Container, id string, partitionKey interface{}) (model.Document, error) {
	start := time.Now()
	if id == "" {
		uc.observe(OpReadItem, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("item id must not be empty").WithCause(errors.ErrMissingItemID)
	}

	doc, err := container.ReadItem(ctx, id, partitionKey)
	if err != nil {
		if errors.IsNotFound(err) {
			uc.observe(OpReadItem, metrics.OutcomeAbsent, start)
			return nil, nil
		}
		uc.log.WithContext(withScope(ctx, OpReadItem, "", container.Name())).
			Error("Failed to read item", zap.String("id", id), zap.Error(err))
		uc.observe(OpReadItem, metrics.OutcomeError, start)
		return nil, err
	}
	uc.observe(OpReadItem, metrics.OutcomeSuccess, start)
	return doc, nil
}

func (uc *documentUsecaseImpl) CreateItem(ctx context.Context, container repository.Container, doc model.Document) (model.Document, error) {
	start := time.Now()
	if doc == nil {
		uc.observe(OpCreateItem, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("item must not be nil").WithCause(errors.ErrInvalidInput)
	}
	if _, ok := doc.ID(); !ok {
		uc.observe(OpCreateItem, metrics.OutcomeError, start)
		return nil, errors.NewValidationError("item must have a non-empty string id").WithCause(errors.ErrMissingItemID)
	}

	if uc.stampOnWrite {
		doc[uc.lastUpdateField] = uc.now().UTC().Format(time.RFC3339Nano)
	}

	stored, err := container.UpsertItem(ctx, doc)
	if err != nil {
		uc.log.WithContext(withScope(ctx, OpCreateItem, "", container.Name())).
			Error("Failed to upsert item", zap.Any("id", doc[model.IDField]), zap.Error(err))
		uc.observe(OpCreateItem, metrics.OutcomeError, start)
		return nil, err
	}
	uc.observe(OpCreateItem, metrics.OutcomeSuccess, start)
	return stored, nil
}

// query runs q and maps a missing container to an empty result
func (uc *documentUsecaseImpl) query(ctx context.Context, op string, container repository.Container, q model.Query) ([]model.Document, error) {
	docs, err := container.Query(ctx, q)
	if err != nil {
		if errors.IsNotFound(err) {
			return []model.Document{}, nil
		}
		uc.log.WithContext(withScope(ctx, op, "", container.Name())).
			Error("Query failed", zap.String("query", q.Text), zap.Error(err))
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

// getUnique queries for a field that must be unique within the container
func (uc *documentUsecaseImpl) getUnique(ctx context.Context, op string, container repository.Container, field, value string, q model.Query) (model.Document, error) {
	if value == "" {
		return nil, errors.NewValidationError(fmt.Sprintf("%s must not be empty", field)).WithCause(errors.ErrInvalidInput)
	}

	docs, err := uc.query(ctx, op, container, q)
	if err != nil {
		return nil, err
	}

	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
		return docs[0], nil
	default:
		uc.log.WithContext(withScope(ctx, op, "", container.Name())).
			Error("Unique field matched more than one item",
				zap.String("field", field),
				zap.String("value", value),
				zap.Int("matches", len(docs)))
		return nil, errors.NewConsistencyError(
			fmt.Sprintf("%d items in container '%s' have %s '%s'", len(docs), container.Name(), field, value)).
			WithDetail("field", field).
			WithDetail("matches", len(docs))
	}
}

func (uc *documentUsecaseImpl) observe(op, outcome string, start time.Time) {
	uc.metrics.Observe(op, outcome, time.Since(start))
}

func (uc *documentUsecaseImpl) observeResult(op string, err error, empty bool, start time.Time) {
	switch {
	case err != nil:
		uc.observe(op, metrics.OutcomeError, start)
	case empty:
		uc.observe(op, metrics.OutcomeAbsent, start)
	default:
		uc.observe(op, metrics.OutcomeSuccess, start)
	}
}

func outcomeOf(err error) string {
	if errors.IsNotFound(err) {
		return metrics.OutcomeAbsent
	}
	return metrics.OutcomeError
}

// withScope adds the operation and the database/container names to ctx for log enrichment
func withScope(ctx context.Context, op, database, container string) context.Context {
	return utils.WithContainer(utils.WithDatabase(utils.WithOperation(ctx, op), database), container)
}
