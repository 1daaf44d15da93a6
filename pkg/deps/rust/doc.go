// Package rust reads Rust crate metadata for the documentation builder.
//
// # Overview
//
// [CargoSource] implements [deps.MetadataSource] in two steps:
//
//   - Cargo.toml is parsed with BurntSushi/toml for the docs.rs build
//     profile ([package.metadata.docs.rs]).
//   - `cargo metadata --format-version 1` is run with the profile's feature
//     flags, and its resolve graph supplies the exact versions, extern names
//     and renames of the root package's direct dependencies.
//
// # Dependency Filtering
//
// Only library edges that are used outside dev builds are reported. Edges
// whose dep_kinds are all "dev" are dropped; build dependencies are kept.
//
// # Usage
//
//	src := rust.NewCargoSource(&execx.Runner{}, "cargo", "nightly")
//	m, err := src.ReadMetadata(ctx, "/tmp/serde-1.0.197/Cargo.toml")
//
// [deps.MetadataSource]: github.com/matzehuels/stackdoc/pkg/deps.MetadataSource
package rust
