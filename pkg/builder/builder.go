package builder

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackdoc/pkg/buildcache"
	"github.com/matzehuels/stackdoc/pkg/depgraph"
	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/observability"
	"github.com/matzehuels/stackdoc/pkg/rustdoc"
	"github.com/matzehuels/stackdoc/pkg/store"
)

// Fetcher provides crate sources. Implemented by *fetch.Fetcher.
type Fetcher interface {
	Source(ctx context.Context, pv deps.PackageVersion, workDir string) (string, error)
}

// Resolver reads build configuration and dependencies from a source tree.
// Implemented by *deps.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, sourceDir string) (*deps.Metadata, error)
}

// Generator runs rustdoc. Implemented by *rustdoc.Generator.
type Generator interface {
	Generate(ctx context.Context, sourceDir string, cfg deps.BuildConfig, externs []rustdoc.Extern) (string, error)
}

// Config holds the collaborators of a run.
type Config struct {
	Cache     *buildcache.Cache // nil disables the build cache
	Fetcher   Fetcher
	Resolver  Resolver
	Generator Generator
	Store     store.Store
	Logger    *log.Logger

	// WorkDir receives unpacked crate sources.
	WorkDir string

	// KeepSources leaves each crate's source tree in WorkDir after it is
	// published.
	KeepSources bool
}

// Omission is a dependency left out of its parent's ".deps" node.
type Omission struct {
	Parent deps.PackageVersion
	Dep    deps.PackageVersion
	Err    error
}

// Result summarizes a finished root build.
type Result struct {
	Package   deps.PackageVersion
	Hash      store.Hash
	Built     int
	CacheHits int
	Omitted   []Omission
	Durations map[deps.PackageVersion]time.Duration
}

// CycleError carries the packages of a dependency cycle, the revisited
// package first and last.
type CycleError struct {
	Chain deps.Chain
}

func (e *CycleError) Error() string {
	return "cycle detected: " + e.Chain.String()
}

// member reports whether pv is part of the cycle.
func (e *CycleError) member(pv deps.PackageVersion) bool {
	return e.Chain.Contains(pv)
}

// Run is the state of one root build: the packages entered so far and the
// hashes published so far. Create one per root with [New].
type Run struct {
	cfg    Config
	logger *log.Logger

	seen      map[deps.PackageVersion]struct{}
	published map[deps.PackageVersion]store.Hash
	failed    map[deps.PackageVersion]error
	result    Result
}

// New creates a run. A nil logger discards log output.
func New(cfg Config) *Run {
	if cfg.Cache == nil {
		cfg.Cache = buildcache.New(nil, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Run{
		cfg:       cfg,
		logger:    logger,
		seen:      make(map[deps.PackageVersion]struct{}),
		published: make(map[deps.PackageVersion]store.Hash),
		failed:    make(map[deps.PackageVersion]error),
		result:    Result{Durations: make(map[deps.PackageVersion]time.Duration)},
	}
}

// BuildRoot builds pv and everything it depends on.
func (r *Run) BuildRoot(ctx context.Context, pv deps.PackageVersion) (*Result, error) {
	h, err := r.Build(ctx, pv, nil)
	if err != nil {
		return nil, err
	}
	res := r.result
	res.Package = pv
	res.Hash = h
	res.Omitted = slices.Clone(r.result.Omitted)
	return &res, nil
}

// Build publishes the documentation of pv and returns its hash. chain is the
// path of packages that led to pv, outermost first, not including pv.
func (r *Run) Build(ctx context.Context, pv deps.PackageVersion, chain deps.Chain) (store.Hash, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if h, ok := r.cached(ctx, pv); ok {
		return h, nil
	}

	if _, ok := r.seen[pv]; ok {
		if chain.Contains(pv) {
			return "", errors.Wrap(errors.ErrCodeCycle, &CycleError{Chain: chain.With(pv).Cycle(pv)}, "build %s", pv)
		}
		// Entered before on another path and did not publish.
		return "", errors.Wrap(errors.ErrCodeCycle, r.failed[pv], "%s already failed in this run (via %s)", pv, chain.With(pv))
	}
	r.seen[pv] = struct{}{}

	start := time.Now()
	observability.Build().OnBuildStart(ctx, pv.String())
	r.logger.Info("building", "crate", pv, "depth", len(chain))

	h, err := r.build(ctx, pv, chain)
	elapsed := time.Since(start)
	observability.Build().OnBuildComplete(ctx, pv.String(), elapsed, err)
	if err != nil {
		r.failed[pv] = err
		return "", err
	}

	r.published[pv] = h
	r.result.Built++
	r.result.Durations[pv] = elapsed
	r.logger.Info("built", "crate", pv, "hash", h, "duration", elapsed.Round(time.Millisecond))

	if err := r.cfg.Cache.Put(ctx, pv, h); err != nil {
		r.logger.Warn("build cache write failed", "crate", pv, "err", err)
	}
	return h, nil
}

// cached consults hashes published earlier in this run, then the build
// cache. Cache read failures count as misses.
func (r *Run) cached(ctx context.Context, pv deps.PackageVersion) (store.Hash, bool) {
	if h, ok := r.published[pv]; ok {
		return h, true
	}
	h, ok, err := r.cfg.Cache.Get(ctx, pv)
	if err != nil {
		r.logger.Warn("build cache read failed", "crate", pv, "err", err)
		return "", false
	}
	if ok {
		r.result.CacheHits++
		r.logger.Debug("cache hit", "crate", pv, "hash", h)
	}
	return h, ok
}

func (r *Run) build(ctx context.Context, pv deps.PackageVersion, chain deps.Chain) (store.Hash, error) {
	src, err := r.cfg.Fetcher.Source(ctx, pv, r.cfg.WorkDir)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeFetch, err, "fetch %s", pv)
	}
	if !r.cfg.KeepSources {
		defer os.RemoveAll(src)
	}

	md, err := r.cfg.Resolver.Resolve(ctx, src)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeMetadata, err, "resolve %s", pv)
	}
	for _, d := range md.Shadowed {
		r.logger.Debug("dependency shadowed by same package name", "crate", pv, "dep", d.PackageVersion, "lib", d.LibName)
	}

	var links []depgraph.Link
	if md.Config.ProcMacro {
		r.logger.Debug("proc-macro, skipping dependencies", "crate", pv)
	} else {
		links, err = r.buildDeps(ctx, pv, chain, md.Dependencies)
		if err != nil {
			return "", err
		}
	}

	externs := make([]rustdoc.Extern, len(links))
	for i, l := range links {
		externs[i] = rustdoc.Extern{Lib: l.Lib, Name: l.Name}
	}
	docDir, err := r.cfg.Generator.Generate(ctx, src, md.Config, externs)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeGeneration, err, "generate docs for %s", pv)
	}
	n, err := rustdoc.Rewrite(docDir)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeGeneration, err, "rewrite docs for %s", pv)
	}
	r.logger.Debug("rewrote dependency links", "crate", pv, "files", n)

	return r.publish(ctx, pv, docDir, links)
}

// buildDeps builds each dependency in order and returns the links of those
// that succeeded.
func (r *Run) buildDeps(ctx context.Context, pv deps.PackageVersion, chain deps.Chain, ds []deps.Dependency) ([]depgraph.Link, error) {
	next := chain.With(pv)
	links := make([]depgraph.Link, 0, len(ds))
	for _, d := range ds {
		h, err := r.Build(ctx, d.PackageVersion, next)
		if err == nil {
			links = append(links, depgraph.Link{Name: d.Name, Lib: d.LibName, Hash: h})
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var cycle *CycleError
		if stderrors.As(err, &cycle) && cycle.member(pv) {
			return nil, err
		}

		r.logger.Warn("omitting dependency", "crate", pv, "dep", d.PackageVersion, "err", err)
		observability.Build().OnDependencyOmitted(ctx, pv.String(), d.PackageVersion.String(), err)
		r.result.Omitted = append(r.result.Omitted, Omission{Parent: pv, Dep: d.PackageVersion, Err: err})
	}
	return links, nil
}

func (r *Run) publish(ctx context.Context, pv deps.PackageVersion, docDir string, links []depgraph.Link) (store.Hash, error) {
	depsNode, err := depgraph.Build(ctx, r.cfg.Store, links)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeStore, err, "publish %s", pv)
	}
	doc, err := r.cfg.Store.Add(ctx, docDir)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeStore, err, "publish %s", pv)
	}
	h, err := depgraph.Attach(ctx, r.cfg.Store, doc, depsNode)
	if err != nil {
		return "", fail(ctx, errors.ErrCodeStore, err, "publish %s", pv)
	}
	return h, nil
}

// fail wraps err with code unless the context was cancelled or err already
// carries code.
func fail(ctx context.Context, code errors.Code, err error, format string, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, code) {
		return err
	}
	return errors.Wrap(code, err, format, args...)
}
