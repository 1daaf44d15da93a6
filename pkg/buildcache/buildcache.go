// Package buildcache records which crates have already been published and
// under which hash.
//
// An entry is authoritative: once (name, version) has a hash, later runs
// return it without fetching or building anything. Entries never expire.
package buildcache

import (
	"context"
	"fmt"

	"github.com/matzehuels/stackdoc/pkg/cache"
	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/observability"
	"github.com/matzehuels/stackdoc/pkg/store"
)

const keyType = "build"

// Cache maps package versions to published hashes.
type Cache struct {
	backend cache.Cache
	keyer   cache.Keyer
}

// New creates a build cache over backend. A nil backend disables caching;
// a nil keyer uses [cache.DefaultKeyer].
func New(backend cache.Cache, keyer cache.Keyer) *Cache {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Cache{backend: backend, keyer: keyer}
}

// Key returns the backend key for pv.
func (c *Cache) Key(pv deps.PackageVersion) string {
	return c.keyer.BuildKey(pv.Name, pv.Version)
}

// Get returns the published hash for pv. A miss is ("", false, nil).
func (c *Cache) Get(ctx context.Context, pv deps.PackageVersion) (store.Hash, bool, error) {
	data, ok, err := c.backend.Get(ctx, c.Key(pv))
	if err != nil {
		return "", false, fmt.Errorf("build cache get %s: %w", pv, err)
	}
	if !ok || len(data) == 0 {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return "", false, nil
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return store.Hash(data), true, nil
}

// Put records hash for pv, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, pv deps.PackageVersion, hash store.Hash) error {
	if hash == "" {
		return fmt.Errorf("build cache put %s: empty hash", pv)
	}
	if err := c.backend.Set(ctx, c.Key(pv), []byte(hash), 0); err != nil {
		return fmt.Errorf("build cache put %s: %w", pv, err)
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(hash))
	return nil
}

// Delete forgets pv so the next run rebuilds it.
func (c *Cache) Delete(ctx context.Context, pv deps.PackageVersion) error {
	if err := c.backend.Delete(ctx, c.Key(pv)); err != nil {
		return fmt.Errorf("build cache delete %s: %w", pv, err)
	}
	return nil
}

// Close closes the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}
