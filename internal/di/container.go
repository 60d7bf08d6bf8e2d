package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmosdb-wrapper/internal/docstore"
	"cosmosdb-wrapper/internal/docstore/config"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container owns the process-wide dependencies and their shutdown order
type Container struct {
	mu sync.RWMutex
	// Module instances
	DocstoreModule *docstore.DocstoreModule
	// Configuration
	Config *config.Config
	// Metrics registry served on /metrics
	Registry *prometheus.Registry
	// Logger
	Logger logger.Logger
}

// NewContainer creates a container with a fresh metrics registry carrying the Go and
// process collectors
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Container{
		Registry: registry,
		Logger:   log,
	}
}

// InitializeDocstore connects the configured backend and builds the docstore module
func (c *Container) InitializeDocstore(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.DocstoreModule != nil {
		return fmt.Errorf("docstore module already initialized")
	}

	module, err := docstore.NewDocstoreModule(ctx, cfg, c.Logger, c.Registry)
	if err != nil {
		return fmt.Errorf("failed to create docstore module: %w", err)
	}

	c.Config = module.Config
	c.DocstoreModule = module
	return nil
}

// GetDocstoreModule returns the docstore module instance
func (c *Container) GetDocstoreModule() *docstore.DocstoreModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.DocstoreModule
}

// HealthCheck checks the store backing the docstore module
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.DocstoreModule == nil {
		return fmt.Errorf("docstore module not initialized")
	}
	return c.DocstoreModule.HealthCheck(ctx)
}

// Cleanup stops the modules in reverse order of initialization
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.DocstoreModule == nil {
		return nil
	}
	err := c.DocstoreModule.Stop(ctx)
	c.DocstoreModule = nil
	if err != nil {
		return fmt.Errorf("failed to stop docstore module: %w", err)
	}
	return nil
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	c.Logger.Info("Closing DI Container resources...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("Cleanup errors occurred: %v", err)
		return err
	}

	c.Logger.Info("DI Container resources closed.")
	return nil
}
