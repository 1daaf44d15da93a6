package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/store"
)

func newStore(t *testing.T) *store.Local {
	t.Helper()
	bs, err := store.NewDirBlockstore(t.TempDir())
	require.NoError(t, err)
	return store.NewLocal(bs)
}

// docNode publishes a small tree so each test hash is a real node.
func docNode(t *testing.T, s store.Store, body string) store.Hash {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(body), 0o644))
	h, err := s.Add(context.Background(), dir)
	require.NoError(t, err)
	return h
}

func TestPointer(t *testing.T) {
	p := NewPointer(filepath.Join(t.TempDir(), "state", "index"))

	h, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, h)

	require.NoError(t, p.Save("sd1-abc"))
	h, err = p.Load()
	require.NoError(t, err)
	assert.Equal(t, store.Hash("sd1-abc"), h)

	assert.Error(t, p.Save(""))
}

func TestOpenEmpty(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	ix, err := Open(ctx, s, NewPointer(filepath.Join(t.TempDir(), "index")))
	require.NoError(t, err)

	empty, err := s.EmptyNode(ctx)
	require.NoError(t, err)
	assert.Equal(t, empty, ix.Root())
	assert.False(t, ix.Dirty())
}

func TestAddLookup(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ix, err := Open(ctx, s, NewPointer(filepath.Join(t.TempDir(), "index")))
	require.NoError(t, err)

	pv := deps.PackageVersion{Name: "serde", Version: "1.0.197"}
	doc := docNode(t, s, "serde")

	_, ok, err := ix.Lookup(ctx, pv)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ix.Add(ctx, pv, doc))
	assert.True(t, ix.Dirty())

	got, ok, err := ix.Lookup(ctx, pv)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc, got)

	// Full path resolution through the store agrees with Lookup.
	resolved, err := s.Resolve(ctx, ix.Root(), "serde/1.0.197")
	require.NoError(t, err)
	assert.Equal(t, doc, resolved)
}

func TestAddSameHashIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ix, err := Open(ctx, s, NewPointer(filepath.Join(t.TempDir(), "index")))
	require.NoError(t, err)

	pv := deps.PackageVersion{Name: "a", Version: "1.0"}
	doc := docNode(t, s, "a")
	require.NoError(t, ix.Add(ctx, pv, doc))
	root := ix.Root()

	require.NoError(t, ix.Add(ctx, pv, doc))
	assert.Equal(t, root, ix.Root())
}

func TestAddConflict(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ix, err := Open(ctx, s, NewPointer(filepath.Join(t.TempDir(), "index")))
	require.NoError(t, err)

	pv := deps.PackageVersion{Name: "a", Version: "1.0"}
	first := docNode(t, s, "first")
	second := docNode(t, s, "second")
	require.NoError(t, ix.Add(ctx, pv, first))
	root := ix.Root()

	err = ix.Add(ctx, pv, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, errors.Is(err, errors.ErrCodeIndexConflict))
	assert.Equal(t, root, ix.Root(), "a refused add leaves the root alone")

	ix.Replace = true
	require.NoError(t, ix.Add(ctx, pv, second))
	got, _, err := ix.Lookup(ctx, pv)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestAddIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ix, err := Open(ctx, s, NewPointer(filepath.Join(t.TempDir(), "index")))
	require.NoError(t, err)

	v10 := deps.PackageVersion{Name: "a", Version: "1.0"}
	v11 := deps.PackageVersion{Name: "a", Version: "1.1"}
	b := deps.PackageVersion{Name: "b", Version: "0.1"}
	h10, h11, hb := docNode(t, s, "a10"), docNode(t, s, "a11"), docNode(t, s, "b")

	require.NoError(t, ix.Add(ctx, v10, h10))
	require.NoError(t, ix.Add(ctx, b, hb))
	require.NoError(t, ix.Add(ctx, v11, h11))

	for pv, want := range map[deps.PackageVersion]store.Hash{v10: h10, v11: h11, b: hb} {
		got, ok, err := ix.Lookup(ctx, pv)
		require.NoError(t, err)
		assert.True(t, ok, pv.String())
		assert.Equal(t, want, got, pv.String())
	}

	names, err := ix.Names(ctx)
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "a", names[0].Name)
	assert.Equal(t, "b", names[1].Name)

	versions, err := ix.Versions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0", versions[0].Name)
	assert.Equal(t, "1.1", versions[1].Name)

	none, err := ix.Versions(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAddRejectsBadNames(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ix, err := Open(ctx, s, NewPointer(filepath.Join(t.TempDir(), "index")))
	require.NoError(t, err)

	err = ix.Add(ctx, deps.PackageVersion{Name: "a/b", Version: "1.0"}, "sd1-x")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestCommitPersists(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	pointer := NewPointer(filepath.Join(t.TempDir(), "index"))

	ix, err := Open(ctx, s, pointer)
	require.NoError(t, err)
	pv := deps.PackageVersion{Name: "a", Version: "1.0"}
	doc := docNode(t, s, "a")
	require.NoError(t, ix.Add(ctx, pv, doc))
	require.NoError(t, ix.Commit(ctx))
	assert.False(t, ix.Dirty())

	pinned, err := s.Pinned(ctx, ix.Root())
	require.NoError(t, err)
	assert.True(t, pinned)

	reopened, err := Open(ctx, s, pointer)
	require.NoError(t, err)
	assert.Equal(t, ix.Root(), reopened.Root())
	got, ok, err := reopened.Lookup(ctx, pv)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc, got)
}
