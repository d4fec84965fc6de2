package port

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for grid caching operations
type Cache interface {
	// Get retrieves a JSON value into dest; ErrCacheMiss when absent
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with the cache's default TTL
	Set(ctx context.Context, key string, value interface{}) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeletePattern removes all keys matching a glob pattern
	DeletePattern(ctx context.Context, pattern string) error

	// Ping checks that the backend is reachable (readiness probe)
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}
