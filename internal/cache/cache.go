// Package cache stores raw upstream responses for a bounded time so that
// repeated analyses do not refetch the same data.
package cache

import (
	"context"
	"fmt"
	"time"

	apperrors "stock-analyst/internal/errors"
)

// DefaultTTL is how long a raw response stays fresh.
const DefaultTTL = time.Hour

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Cache is a byte store with per-entry expiry. Get returns
// apperrors.ErrCacheMiss for absent or expired keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Policy decides how long entries live. A zero TTL disables caching.
type Policy struct {
	TTL time.Duration
}

// DefaultPolicy keeps entries for DefaultTTL.
func DefaultPolicy() Policy {
	return Policy{TTL: DefaultTTL}
}

// Enabled reports whether entries are stored at all.
func (p Policy) Enabled() bool {
	return p.TTL > 0
}

// Config selects and configures a backend.
type Config struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	RedisURL   string        `mapstructure:"redis_url"`
}

// Open creates the backend named in cfg.
func Open(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		c, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return Nop{}, nil
	default:
		return nil, apperrors.NewConfigurationError("cache.backend", cfg.Backend, "must be memory, sqlite, redis or none")
	}
}

// Loader produces a fresh value on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// GetOrLoad returns the cached value for key, or calls load and stores its
// result. hit reports whether the value came from the cache. Cache read and
// write failures are not fatal; the loader result is returned regardless.
func GetOrLoad(ctx context.Context, c Cache, p Policy, key string, load Loader) (value []byte, hit bool, err error) {
	if c != nil && p.Enabled() {
		if v, err := c.Get(ctx, key); err == nil {
			return v, true, nil
		}
	}

	value, err = load(ctx)
	if err != nil {
		return nil, false, err
	}

	if c != nil && p.Enabled() {
		_ = c.Set(ctx, key, value, p.TTL)
	}
	return value, false, nil
}

// Key joins parts into a namespaced cache key.
func Key(namespace string, parts ...string) string {
	key := namespace
	for _, p := range parts {
		key = fmt.Sprintf("%s:%s", key, p)
	}
	return key
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error) {
	return nil, apperrors.ErrCacheMiss
}

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) Close() error { return nil }
