package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Backend names accepted by DOCSTORE_BACKEND
const (
	BackendCosmos  = "cosmos"
	BackendMongoDB = "mongodb"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// CosmosConfig holds the Azure Cosmos DB account settings.
// Either ConnectionString or Endpoint plus Key must be set.
type CosmosConfig struct {
	Endpoint         string `env:"COSMOS_ENDPOINT" json:"endpoint"`
	Key              string `env:"COSMOS_KEY" json:"-"`
	ConnectionString string `env:"COSMOS_CONNECTION_STRING" json:"-"`
}

// MongoConfig holds the MongoDB (or Cosmos DB for MongoDB) connection settings.
type MongoConfig struct {
	URI                string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017" json:"uri"`
	MetadataCollection string `env:"MONGODB_METADATA_COLLECTION" envDefault:"_metadata" json:"metadata_collection"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost" json:"host"`
	Port            string `env:"REDIS_PORT" envDefault:"6379" json:"port"`
	Password        string `env:"REDIS_PASSWORD" json:"-"`
	Database        int    `env:"REDIS_DB" envDefault:"0" json:"database"`
	KeyPrefix       string `env:"REDIS_KEY_PREFIX" envDefault:"docstore:" json:"key_prefix"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3" json:"max_retries"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10" json:"pool_size"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2" json:"min_idle_conns"`
	EnableTLS       bool   `env:"REDIS_ENABLE_TLS" envDefault:"false" json:"enable_tls"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m" json:"conn_max_idle_time"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h" json:"conn_max_lifetime"`
}

// GetAddr returns the host:port address of the Redis server
func (r RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// StampConfig controls last-update stamping on upsert
type StampConfig struct {
	Enabled bool   `env:"STAMP_ON_WRITE" envDefault:"true" json:"enabled"`
	Field   string `env:"LAST_UPDATE_FIELD" envDefault:"last_update" json:"field"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `env:"SERVER_HOST" envDefault:"localhost" json:"host"`
	Port           string        `env:"SERVER_PORT" envDefault:"3000" json:"port"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s" json:"request_timeout"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Config holds all configuration for the document store module.
type Config struct {
	Backend string       `env:"DOCSTORE_BACKEND" envDefault:"memory" json:"backend"`
	Cosmos  CosmosConfig `json:"cosmos"`
	Mongo   MongoConfig  `json:"mongo"`
	Redis   RedisConfig  `json:"redis"`
	Stamp   StampConfig  `json:"stamp"`
	Server  ServerConfig `json:"server"`
}

// LoadConfig loads configuration from environment variables, applies defaults and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load docstore configuration from environment: " + err.Error())
	}

	nested := map[string]interface{}{
		"cosmos": &cfg.Cosmos,
		"mongo":  &cfg.Mongo,
		"redis":  &cfg.Redis,
		"stamp":  &cfg.Stamp,
		"server": &cfg.Server,
	}
	for name, section := range nested {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("failed to load docstore %s configuration from environment: %w", name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with default values, backed by the in-memory store.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendMemory,
		Mongo: MongoConfig{
			URI:                "mongodb://localhost:27017",
			MetadataCollection: "_metadata",
		},
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			KeyPrefix:       "docstore:",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: "30m",
			ConnMaxLifetime: "1h",
		},
		Stamp: StampConfig{
			Enabled: true,
			Field:   "last_update",
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           "3000",
			RequestTimeout: 30 * time.Second,
		},
	}
}

// Validate checks the backend choice and the settings that backend needs. An empty backend
// means the in-memory store.
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	switch c.Backend {
	case BackendCosmos:
		if c.Cosmos.ConnectionString == "" && (c.Cosmos.Endpoint == "" || c.Cosmos.Key == "") {
			return errors.New("cosmos backend requires COSMOS_CONNECTION_STRING or COSMOS_ENDPOINT and COSMOS_KEY")
		}
	case BackendMongoDB:
		if c.Mongo.URI == "" {
			return errors.New("MONGODB_URI environment variable is not set")
		}
	case BackendRedis:
		if c.Redis.Host == "" || c.Redis.Port == "" {
			return errors.New("redis backend requires REDIS_HOST and REDIS_PORT")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown DOCSTORE_BACKEND %q (want %s, %s, %s or %s)",
			c.Backend, BackendCosmos, BackendMongoDB, BackendRedis, BackendMemory)
	}

	if c.Stamp.Enabled && c.Stamp.Field == "" {
		return errors.New("LAST_UPDATE_FIELD must not be empty when STAMP_ON_WRITE is enabled")
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	return nil
}
