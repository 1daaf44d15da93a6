package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackdoc/pkg/store"
)

func newStore(t *testing.T) *store.Local {
	t.Helper()
	bs, err := store.NewDirBlockstore(t.TempDir())
	require.NoError(t, err)
	return store.NewLocal(bs)
}

func addFile(t *testing.T, s store.Store, content string) store.Hash {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(content), 0644))
	h, err := s.Add(context.Background(), dir)
	require.NoError(t, err)
	return h
}

func TestBuildEmpty(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	h, err := Build(ctx, s, nil)
	require.NoError(t, err)

	empty, err := s.EmptyNode(ctx)
	require.NoError(t, err)
	assert.Equal(t, empty, h)
}

func TestBuildLinksByPackageName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := addFile(t, s, "a")
	b := addFile(t, s, "b")

	// Two packages may share a library name; links are keyed by package.
	h, err := Build(ctx, s, []Link{
		{Name: "rand", Lib: "rand", Hash: a},
		{Name: "rand-compat", Lib: "rand", Hash: b},
	})
	require.NoError(t, err)

	links, err := s.Links(ctx, h)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "rand", links[0].Name)
	assert.Equal(t, a, links[0].Hash)
	assert.Equal(t, "rand-compat", links[1].Name)
	assert.Equal(t, b, links[1].Hash)
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := addFile(t, s, "a")

	_, err := Build(ctx, s, []Link{{Name: "x", Hash: a}, {Name: "x", Hash: a}})
	assert.Error(t, err)
}

func TestAttach(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	doc := addFile(t, s, "doc")
	deps, err := Build(ctx, s, []Link{{Name: "dep", Lib: "dep", Hash: addFile(t, s, "dep")}})
	require.NoError(t, err)

	root, err := Attach(ctx, s, doc, deps)
	require.NoError(t, err)

	got, err := s.GetLink(ctx, root, DepsName)
	require.NoError(t, err)
	assert.Equal(t, deps, got)

	_, err = s.GetLink(ctx, root, "index.html")
	assert.NoError(t, err)
}
