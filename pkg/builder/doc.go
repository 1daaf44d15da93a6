// Package builder documents a crate and, recursively, every library it
// depends on.
//
// # Algorithm
//
// [Run.Build] visits the dependency graph depth-first. For each package
// version it:
//
//  1. returns the cached hash if the build cache has one,
//  2. fails with CYCLE_DETECTED if the package was already entered in this
//     run,
//  3. fetches and unpacks the crate and resolves its metadata,
//  4. builds every direct library dependency (skipped for proc-macros),
//  5. runs rustdoc with a placeholder html root for each extern and rewrites
//     the placeholder to a relative ".deps" path,
//  6. publishes the docs, attaches a ".deps" node linking the dependencies
//     that built, and records the result in the cache.
//
// # Partial failure
//
// A dependency that fails is logged and left out of its parent's ".deps"
// node; the parent still publishes. Only two failures travel upward:
// cancellation of the context, and a cycle whose members include the parent.
// The root build therefore fails only if the root itself cannot be built.
//
// # Usage
//
//	run := builder.New(builder.Config{
//	    Cache:     buildcache.New(backend, nil),
//	    Fetcher:   fetcher,
//	    Resolver:  deps.NewResolver(rust.NewCargoSource(runner, "cargo", "")),
//	    Generator: rustdoc.NewGenerator(runner, "cargo", "nightly"),
//	    Store:     store.NewIPFS(""),
//	    WorkDir:   workspace,
//	    Logger:    logger,
//	})
//	res, err := run.BuildRoot(ctx, deps.PackageVersion{Name: "serde", Version: "1.0.197"})
//
// A Run is not safe for concurrent use.
package builder
