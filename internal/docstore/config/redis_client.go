package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options translates the Redis section into go-redis options. Empty durations fall back to
// 30m idle and 1h lifetime; malformed ones are an error.
func (r RedisConfig) Options() (*redis.Options, error) {
	idle, err := durationOr(r.ConnMaxIdleTime, 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("REDIS_CONN_MAX_IDLE_TIME: %w", err)
	}
	lifetime, err := durationOr(r.ConnMaxLifetime, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("REDIS_CONN_MAX_LIFETIME: %w", err)
	}

	opts := &redis.Options{
		Addr:            r.GetAddr(),
		Password:        r.Password,
		DB:              r.Database,
		MaxRetries:      r.MaxRetries,
		PoolSize:        r.PoolSize,
		MinIdleConns:    r.MinIdleConns,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: idle,
		ConnMaxLifetime: lifetime,
	}
	if r.EnableTLS {
		opts.TLSConfig = &tls.Config{ServerName: r.Host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// NewRedisClient creates the Redis client backing the redis store
func NewRedisClient(cfg *RedisConfig) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func durationOr(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}
