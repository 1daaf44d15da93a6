package buildcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackdoc/pkg/cache"
	"github.com/matzehuels/stackdoc/pkg/deps"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	backend, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	c := New(backend, nil)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	pv := deps.PackageVersion{Name: "serde", Version: "1.0.197"}

	_, ok, err := c.Get(ctx, pv)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, pv, "sd1-aaaa"))
	h, ok, err := c.Get(ctx, pv)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sd1-aaaa", h.String())

	require.NoError(t, c.Put(ctx, pv, "sd1-bbbb"))
	h, _, _ = c.Get(ctx, pv)
	assert.Equal(t, "sd1-bbbb", h.String(), "last write wins")

	require.NoError(t, c.Delete(ctx, pv))
	_, ok, err = c.Get(ctx, pv)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutRejectsEmptyHash(t *testing.T) {
	c := newCache(t)
	err := c.Put(context.Background(), deps.PackageVersion{Name: "a", Version: "1"}, "")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	pv := deps.PackageVersion{Name: "serde", Version: "1.0.197"}

	assert.Equal(t, "build:serde@1.0.197", New(nil, nil).Key(pv))
	assert.Equal(t, "local:build:serde@1.0.197", New(nil, cache.NewScopedKeyer(nil, "local:")).Key(pv))
}

func TestScopesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	backend, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	ipfs := New(backend, cache.NewScopedKeyer(nil, "ipfs:"))
	local := New(backend, cache.NewScopedKeyer(nil, "local:"))
	pv := deps.PackageVersion{Name: "a", Version: "1.0"}

	require.NoError(t, ipfs.Put(ctx, pv, "Qm123"))
	_, ok, err := local.Get(ctx, pv)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilBackendNeverHits(t *testing.T) {
	ctx := context.Background()
	c := New(nil, nil)
	pv := deps.PackageVersion{Name: "a", Version: "1.0"}

	require.NoError(t, c.Put(ctx, pv, "sd1-aaaa"))
	_, ok, err := c.Get(ctx, pv)
	require.NoError(t, err)
	assert.False(t, ok)
}
