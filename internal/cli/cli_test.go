package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackdoc/internal/config"
	"github.com/matzehuels/stackdoc/pkg/cache"
	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/index"
	"github.com/matzehuels/stackdoc/pkg/store"
)

// testEnv points the configuration at a temp directory with a local store.
func testEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("STACKDOC_STORE", "local")
	t.Setenv("STACKDOC_LOCAL_DIR", filepath.Join(root, "blocks"))
	t.Setenv("STACKDOC_CACHE", "file")
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := New(&out, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"build", "index", "cache", "config", "completion"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.Flags().Lookup("no-cache"), "root shorthand accepts build flags")
}

func TestCachePath(t *testing.T) {
	root := testEnv(t)
	out, err := execute(t, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "cache", "stackdoc"), strings.TrimSpace(out))
}

func TestCacheClearHonoursBuildLock(t *testing.T) {
	root := testEnv(t)
	dir := filepath.Join(root, "cache", "stackdoc")
	entry := filepath.Join(dir, "builds", "ab", "x.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(entry), 0o755))
	require.NoError(t, os.WriteFile(entry, []byte("x"), 0o644))

	lock, err := acquireLock(filepath.Join(dir, "stackdoc.lock"), false)
	require.NoError(t, err)

	_, err = execute(t, "cache", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache is locked")
	assert.FileExists(t, entry)

	require.NoError(t, lock.Release())
	_, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.NoFileExists(t, entry)
	assert.FileExists(t, filepath.Join(dir, "stackdoc.lock"))
}

func TestIndexGet(t *testing.T) {
	root := testEnv(t)
	ctx := context.Background()

	bs, err := store.NewDirBlockstore(filepath.Join(root, "blocks"))
	require.NoError(t, err)
	s := store.NewLocal(bs)
	doc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(doc, "index.html"), []byte("serde"), 0o644))
	h, err := s.Add(ctx, doc)
	require.NoError(t, err)

	ix, err := index.Open(ctx, s, index.NewPointer(filepath.Join(root, "data", "stackdoc", "index")))
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, deps.PackageVersion{Name: "serde", Version: "1.0.197"}, h))
	require.NoError(t, ix.Commit(ctx))

	out, err := execute(t, "index", "get", "serde", "1.0.197")
	require.NoError(t, err)
	assert.Equal(t, h.String(), strings.TrimSpace(out))

	_, err = execute(t, "index", "get", "serde", "0.9.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPackage))
}

func TestCacheGetForget(t *testing.T) {
	testEnv(t)
	ctx := context.Background()

	cfg, err := config.Load("")
	require.NoError(t, err)
	bc, err := openBuildCache(ctx, cfg)
	require.NoError(t, err)
	pv := deps.PackageVersion{Name: "itoa", Version: "1.0.10"}
	require.NoError(t, bc.Put(ctx, pv, "sd1-abc"))
	require.NoError(t, bc.Close())

	out, err := execute(t, "cache", "get", "itoa", "1.0.10")
	require.NoError(t, err)
	assert.Equal(t, "sd1-abc", strings.TrimSpace(out))

	_, err = execute(t, "cache", "forget", "itoa", "1.0.10")
	require.NoError(t, err)

	bc, err = openBuildCache(ctx, cfg)
	require.NoError(t, err)
	defer bc.Close()
	_, ok, err := bc.Get(ctx, pv)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildRejectsBadArguments(t *testing.T) {
	testEnv(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"bad crate name", []string{"build", "../evil", "1.0.0"}, errors.ErrCodeInvalidPackage},
		{"bad version", []string{"build", "serde", "1.0/0"}, errors.ErrCodeInvalidPackage},
		{"bad store", []string{"build", "serde", "1.0.0", "--store", "s3"}, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestBuildOptionsApply(t *testing.T) {
	cfg := config.Default()
	opts := buildOptions{noCache: true, storeKind: "local", toolchain: "nightly-2024-05-01", metricsFile: "/tmp/m.prom"}
	require.NoError(t, opts.apply(cfg))

	assert.Equal(t, config.CacheNone, cfg.Cache.Backend)
	assert.Equal(t, config.StoreLocal, cfg.Store.Kind)
	assert.Equal(t, "nightly-2024-05-01", cfg.Build.Toolchain)
	assert.Equal(t, "/tmp/m.prom", cfg.MetricsFile)
}

func TestOpenCacheBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		backend string
		memory  int
		want    any
	}{
		{"file", config.CacheFile, 0, &cache.FileCache{}},
		{"sqlite", config.CacheSQLite, 0, &cache.SQLiteCache{}},
		{"none", config.CacheNone, 0, &cache.NullCache{}},
		{"layered", config.CacheFile, 8, &cache.Layered{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Cache.Dir = filepath.Join(dir, tt.name)
			cfg.Cache.SQLitePath = filepath.Join(dir, tt.name, "builds.db")
			cfg.Cache.Backend = tt.backend
			cfg.Cache.MemorySize = tt.memory

			c, err := openCacheBackend(context.Background(), cfg)
			require.NoError(t, err)
			defer c.Close()
			assert.IsType(t, tt.want, c)
		})
	}
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "stackdoc.lock")

	lock, err := acquireLock(path, false)
	require.NoError(t, err)

	_, err = acquireLock(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("pid %d", os.Getpid()))
	assert.Contains(t, err.Error(), "--force-unlock")

	require.NoError(t, lock.Release())
	again, err := acquireLock(path, false)
	require.NoError(t, err, "a released lock can be taken again")
	require.NoError(t, again.Release())

	_, err = os.Stat(path)
	assert.NoError(t, err, "the lock file outlives the lock")
}

func TestLockForceUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackdoc.lock")

	held, err := acquireLock(path, false)
	require.NoError(t, err)
	defer held.Release()

	forced, err := acquireLock(path, true)
	require.NoError(t, err)
	require.NoError(t, forced.Release())
}

func TestLockLeftByExitedProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackdoc.lock")
	require.NoError(t, os.WriteFile(path, []byte("4194303 2024-01-01T00:00:00Z\n"), 0o644))

	lock, err := acquireLock(path, false)
	require.NoError(t, err, "a lock file nobody holds does not block a build")
	defer lock.Release()

	assert.Contains(t, lockOwner(path), fmt.Sprintf("pid %d", os.Getpid()))
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"builds/ab/x.json", "crates/serde-1.0.0.crate", "http/cd/y.json"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, filepath.Dir(p)), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, p), []byte("x"), 0o644))
	}

	lock := filepath.Join(dir, "stackdoc.lock")
	require.NoError(t, os.WriteFile(lock, nil, 0o644))

	n, err := clearDir(dir, lock)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stackdoc.lock", entries[0].Name())
}

func TestNewWorkspace(t *testing.T) {
	root := t.TempDir()
	a, err := newWorkspace(root)
	require.NoError(t, err)
	b, err := newWorkspace(root)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(filepath.Base(a), "stackdoc-"))
	assert.DirExists(t, a)
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "stackdoc")
		})
	}
}
