// Package cache provides the byte-level key/value backends behind stackdoc's
// build cache and HTTP response cache.
//
// Backends:
//
//   - [FileCache]: one JSON entry file per key under a directory (default)
//   - [SQLiteCache]: a single SQLite database file
//   - [RedisCache]: a shared Redis instance
//   - [MemoryCache]: an in-process LRU
//   - [Layered]: a fast cache in front of a durable one
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that one backend can be shared by several
// namespaces without collisions.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
