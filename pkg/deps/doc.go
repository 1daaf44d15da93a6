// Package deps defines crate identities and resolves a crate's build
// configuration and direct dependencies.
//
// # Overview
//
// A [PackageVersion] is the identity key for everything stackdoc builds,
// caches and indexes. A [Chain] records the active recursion path of a build
// and renders the diagnostic shown when a cycle is detected.
//
// The [Resolver] reads a source tree through a [MetadataSource] (see
// [github.com/matzehuels/stackdoc/pkg/deps/rust] for the cargo
// implementation) and produces [Metadata]: a [BuildConfig] for the doc
// generator plus the direct non-dev library dependencies in cargo's
// enumeration order.
//
// # Target Selection
//
// The build target is chosen by [SelectTarget]:
//
//  1. default-target from [package.metadata.docs.rs]
//  2. the first entry of targets
//  3. no override (the generator's host default)
//
// Proc-macro crates never receive a target override.
package deps
