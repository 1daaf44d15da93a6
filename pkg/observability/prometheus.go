package observability

import (
	"context"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface with client_golang metrics
// registered on its own registry.
type Prometheus struct {
	reg *prom.Registry

	builds        *prom.CounterVec
	buildDuration prom.Histogram
	omitted       prom.Counter
	cacheEvents   *prom.CounterVec
	cacheBytes    *prom.CounterVec
	storeOps      *prom.CounterVec
	storeDuration *prom.HistogramVec
	httpRequests  *prom.CounterVec
	httpErrors    *prom.CounterVec
}

// NewPrometheus creates and registers the stackdoc metrics on reg, or on a
// fresh registry when reg is nil.
func NewPrometheus(reg *prom.Registry) *Prometheus {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &Prometheus{
		reg: reg,
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "builds_total",
			Help:      "Crate documentation builds by result",
		}, []string{"result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "stackdoc",
			Name:      "build_duration_seconds",
			Help:      "Duration of a single crate build, dependencies included",
			Buckets:   prom.ExponentialBuckets(0.5, 2, 12),
		}),
		omitted: prom.NewCounter(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "dependencies_omitted_total",
			Help:      "Dependency links omitted because the dependency failed",
		}),
		cacheEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes by key type",
		}, []string{"key_type", "event"}),
		cacheBytes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		storeOps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "store_operations_total",
			Help:      "Content-store operations by result",
		}, []string{"op", "result"}),
		storeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "stackdoc",
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of content-store operations",
			Buckets:   prom.DefBuckets,
		}, []string{"op"}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "http_responses_total",
			Help:      "Registry HTTP responses by host and status",
		}, []string{"host", "status"}),
		httpErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stackdoc",
			Name:      "http_errors_total",
			Help:      "Registry HTTP transport errors by host",
		}, []string{"host"}),
	}
	reg.MustRegister(p.builds, p.buildDuration, p.omitted, p.cacheEvents, p.cacheBytes,
		p.storeOps, p.storeDuration, p.httpRequests, p.httpErrors)
	return p
}

// Registry returns the registry the metrics are registered on.
func (p *Prometheus) Registry() *prom.Registry { return p.reg }

// WriteToTextfile writes the current metrics in the node_exporter textfile
// format.
func (p *Prometheus) WriteToTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

// Register installs p as the build, cache, store and HTTP hooks.
func (p *Prometheus) Register() {
	SetBuildHooks(p)
	SetCacheHooks(p)
	SetStoreHooks(p)
	SetHTTPHooks(p)
}

func (p *Prometheus) OnBuildStart(context.Context, string) {}

func (p *Prometheus) OnBuildComplete(_ context.Context, _ string, d time.Duration, err error) {
	p.builds.WithLabelValues(result(err)).Inc()
	p.buildDuration.Observe(d.Seconds())
}

func (p *Prometheus) OnDependencyOmitted(context.Context, string, string, error) {
	p.omitted.Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnStoreOp(_ context.Context, op string, d time.Duration, err error) {
	p.storeOps.WithLabelValues(op, result(err)).Inc()
	p.storeDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, status int, _ time.Duration) {
	p.httpRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.httpErrors.WithLabelValues(host).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ BuildHooks = (*Prometheus)(nil)
	_ CacheHooks = (*Prometheus)(nil)
	_ StoreHooks = (*Prometheus)(nil)
	_ HTTPHooks  = (*Prometheus)(nil)
)
