package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounts(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus(nil)

	p.OnBuildComplete(ctx, "a@1.0", time.Second, nil)
	p.OnBuildComplete(ctx, "b@1.0", time.Second, errors.New("boom"))
	p.OnDependencyOmitted(ctx, "a@1.0", "b@1.0", errors.New("boom"))
	p.OnCacheHit(ctx, "build")
	p.OnCacheMiss(ctx, "build")
	p.OnCacheSet(ctx, "build", 46)
	p.OnStoreOp(ctx, "add", 10*time.Millisecond, nil)
	p.OnResponse(ctx, "GET", "static.crates.io", "/crates/a/a-1.0.crate", 200, time.Second)
	p.OnError(ctx, "GET", "static.crates.io", "/crates/b/b-1.0.crate", errors.New("reset"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.builds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.builds.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.omitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheEvents.WithLabelValues("build", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheEvents.WithLabelValues("build", "miss")))
	assert.Equal(t, 46.0, testutil.ToFloat64(p.cacheBytes.WithLabelValues("build")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeOps.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpRequests.WithLabelValues("static.crates.io", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpErrors.WithLabelValues("static.crates.io")))
}

func TestPrometheusRegisterInstallsHooks(t *testing.T) {
	defer Reset()

	p := NewPrometheus(nil)
	p.Register()

	assert.Same(t, p, Build())
	assert.Same(t, p, Cache())
	assert.Same(t, p, Store())
	assert.Same(t, p, HTTP())
}

func TestPrometheusWriteToTextfile(t *testing.T) {
	p := NewPrometheus(nil)
	p.OnBuildComplete(context.Background(), "a@1.0", time.Second, nil)

	path := filepath.Join(t.TempDir(), "stackdoc.prom")
	require.NoError(t, p.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `stackdoc_builds_total{result="ok"} 1`))
}
