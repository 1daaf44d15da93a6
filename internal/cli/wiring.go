package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/matzehuels/stackdoc/internal/config"
	"github.com/matzehuels/stackdoc/pkg/buildcache"
	"github.com/matzehuels/stackdoc/pkg/cache"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/execx"
	"github.com/matzehuels/stackdoc/pkg/fetch"
	"github.com/matzehuels/stackdoc/pkg/index"
	"github.com/matzehuels/stackdoc/pkg/integrations/crates"
	"github.com/matzehuels/stackdoc/pkg/store"
)

// =============================================================================
// Store
// =============================================================================

// openStore connects the configured content store, instrumented with the
// CLI logger and store hooks.
func (c *CLI) openStore(cfg *config.Config) (store.Store, error) {
	var s store.Store
	switch cfg.Store.Kind {
	case config.StoreIPFS:
		ipfs := store.NewIPFS(cfg.Store.IPFSAPI)
		if !ipfs.Up() {
			return nil, errors.New(errors.ErrCodeStore, "IPFS API not reachable at %s (start a daemon or use --store local)", cfg.Store.IPFSAPI)
		}
		s = ipfs
	case config.StoreLocal:
		blocks, err := openBlockstore(cfg)
		if err != nil {
			return nil, err
		}
		s = store.NewLocal(blocks)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store kind %q", cfg.Store.Kind)
	}
	return store.Instrument(s, c.Logger), nil
}

func openBlockstore(cfg *config.Config) (store.Blockstore, error) {
	if s3 := cfg.Store.S3; s3.Bucket != "" {
		b, err := store.NewS3Blockstore(store.S3Config{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "open S3 bucket %s", s3.Bucket)
		}
		return b, nil
	}
	b, err := store.NewDirBlockstore(cfg.Store.LocalDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open local store %s", cfg.Store.LocalDir)
	}
	return b, nil
}

// openIndex opens the global index over s.
func openIndex(ctx context.Context, cfg *config.Config, s store.Store) (*index.Index, error) {
	return index.Open(ctx, s, index.NewPointer(cfg.Index.Pointer))
}

// =============================================================================
// Caches
// =============================================================================

// openCacheBackend opens the configured byte cache for build entries.
func openCacheBackend(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	var (
		backend cache.Cache
		err     error
	)
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheFile:
		backend, err = cache.NewFileCache(cfg.BuildCacheDir())
	case config.CacheSQLite:
		backend, err = cache.NewSQLiteCache(cfg.Cache.SQLitePath)
	case config.CacheRedis:
		backend, err = cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Cache.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}

	if cfg.Cache.MemorySize > 0 {
		front, err := cache.NewMemoryCache(cfg.Cache.MemorySize)
		if err != nil {
			backend.Close()
			return nil, err
		}
		backend = cache.NewLayered(front, backend)
	}
	return backend, nil
}

// openBuildCache opens the build cache scoped to the configured store.
func openBuildCache(ctx context.Context, cfg *config.Config) (*buildcache.Cache, error) {
	backend, err := openCacheBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return buildcache.New(backend, cache.NewScopedKeyer(nil, cfg.StoreScope())), nil
}

// =============================================================================
// Registry and tools
// =============================================================================

// newCratesClient creates a crates.io client whose API responses are cached
// on disk. A cache directory that cannot be created disables caching.
func (c *CLI) newCratesClient(cfg *config.Config) *crates.Client {
	var backend cache.Cache = cache.NewNullCache()
	if fc, err := cache.NewFileCache(cfg.HTTPCacheDir()); err == nil {
		backend = fc
	} else {
		c.Logger.Warn("registry cache disabled", "err", err)
	}
	return crates.NewClient(backend, registryCacheTTL)
}

func (c *CLI) newFetcher(cfg *config.Config, client *crates.Client) (*fetch.Fetcher, error) {
	return fetch.New(client, fetch.Options{
		Dir:    cfg.CratesDir(),
		Verify: cfg.Build.Verify,
		Logger: c.Logger,
	})
}

func (c *CLI) newRunner() *execx.Runner {
	return &execx.Runner{
		Verbose: c.verbose(),
		Stdout:  os.Stderr,
		Stderr:  os.Stderr,
		Logger:  c.Logger,
	}
}
