package docstore

import (
	"context"
	"fmt"

	httpadapter "cosmosdb-wrapper/internal/docstore/adapter/http"
	"cosmosdb-wrapper/internal/docstore/adapter/persistence/cosmos"
	"cosmosdb-wrapper/internal/docstore/adapter/persistence/memory"
	"cosmosdb-wrapper/internal/docstore/adapter/persistence/mongodb"
	"cosmosdb-wrapper/internal/docstore/adapter/persistence/redisstore"
	"cosmosdb-wrapper/internal/docstore/config"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/docstore/usecase"
	"cosmosdb-wrapper/internal/shared/logger"
	"cosmosdb-wrapper/internal/shared/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Pinger is implemented by store clients that can check connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocstoreModule bundles the store client chosen by configuration with the helpers built on it.
type DocstoreModule struct {
	Config       *config.Config
	Client       repository.Client
	Usecase      usecase.DocumentUsecase
	AsyncUsecase *usecase.AsyncDocumentUsecase
	Handler      *httpadapter.HTTPHandler
	Metrics      *metrics.Recorder
	Logger       logger.Logger
}

// NewDocstoreModule connects to the configured backend and builds the usecases and HTTP handler.
// Metrics are registered on reg when it is non-nil.
func NewDocstoreModule(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*DocstoreModule, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
		log.Info("No configuration provided, using defaults.")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info("Initializing Docstore Module", zap.String("backend", cfg.Backend))

	client, err := NewClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return NewDocstoreModuleWithClient(cfg, client, log, reg), nil
}

// NewDocstoreModuleWithClient builds the module around an existing store client.
func NewDocstoreModuleWithClient(cfg *config.Config, client repository.Client, log logger.Logger, reg prometheus.Registerer) *DocstoreModule {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var recorder *metrics.Recorder
	if reg != nil {
		recorder = metrics.NewRecorder(reg)
	}

	uc := usecase.NewDocumentUsecase(log, usecase.Options{
		StampOnWrite:    cfg.Stamp.Enabled,
		LastUpdateField: cfg.Stamp.Field,
		Metrics:         recorder,
	})

	return &DocstoreModule{
		Config:       cfg,
		Client:       client,
		Usecase:      uc,
		AsyncUsecase: usecase.NewAsyncDocumentUsecase(uc),
		Handler:      httpadapter.NewHTTPHandler(uc, client, log, cfg.Server.RequestTimeout),
		Metrics:      recorder,
		Logger:       log,
	}
}

// NewClient opens the store client selected by cfg.Backend
func NewClient(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Client, error) {
	switch cfg.Backend {
	case config.BackendCosmos:
		if cfg.Cosmos.ConnectionString != "" {
			return cosmos.NewClientFromConnectionString(cfg.Cosmos.ConnectionString, log)
		}
		return cosmos.NewClientWithKey(cfg.Cosmos.Endpoint, cfg.Cosmos.Key, log)

	case config.BackendMongoDB:
		client, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.MetadataCollection, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return client, nil

	case config.BackendRedis:
		rdb, err := config.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		client, err := redisstore.NewClient(rdb, cfg.Redis.KeyPrefix, log)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.GetAddr(), err)
		}
		return client, nil

	case config.BackendMemory:
		return memory.NewClient(log)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// RegisterRoutes registers the document API
func (m *DocstoreModule) RegisterRoutes(router fiber.Router) {
	m.Handler.RegisterRoutes(router)
}

// HealthCheck pings the store when the client supports it
func (m *DocstoreModule) HealthCheck(ctx context.Context) error {
	if pinger, ok := m.Client.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", m.Config.Backend, err)
		}
	}
	return nil
}

// Stop closes the store client
func (m *DocstoreModule) Stop(ctx context.Context) error {
	m.Logger.Info("Stopping Docstore Module...")
	if m.Client == nil {
		return nil
	}
	return m.Client.Close(ctx)
}
