package deps

import (
	"fmt"
	"slices"
	"strings"
)

// PackageVersion identifies one buildable crate. Name and Version are opaque
// strings compared by exact match; no normalization or semver parsing is
// applied.
type PackageVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String renders the identity as "name@version".
func (pv PackageVersion) String() string {
	return pv.Name + "@" + pv.Version
}

// Chain is the active recursion path of one root build, outermost first.
// Chains are treated as immutable values: With always returns a copy.
type Chain []PackageVersion

// With returns a new chain with pv appended.
func (c Chain) With(pv PackageVersion) Chain {
	out := make(Chain, len(c), len(c)+1)
	copy(out, c)
	return append(out, pv)
}

// Contains reports whether pv is on the chain.
func (c Chain) Contains(pv PackageVersion) bool {
	return slices.Contains(c, pv)
}

// Cycle returns the members of the cycle closed by pv: the suffix of the chain
// starting at the first occurrence of pv. It returns nil if pv is not on the
// chain.
func (c Chain) Cycle(pv PackageVersion) Chain {
	i := slices.Index(c, pv)
	if i < 0 {
		return nil
	}
	return slices.Clone(c[i:])
}

// String renders the chain as "a@1.0 → b@1.0".
func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, pv := range c {
		parts[i] = pv.String()
	}
	return strings.Join(parts, " → ")
}

// DepKind is the cargo dependency kind.
type DepKind string

const (
	KindNormal DepKind = "normal"
	KindBuild  DepKind = "build"
	KindDev    DepKind = "dev"
)

// Dependency is one direct library dependency of a crate.
type Dependency struct {
	PackageVersion

	// LibName is the identifier the dependent uses for the library
	// (the extern crate name, after any rename).
	LibName string `json:"lib_name"`

	// Rename is the rename declared in the dependent's manifest, if any.
	Rename string `json:"rename,omitempty"`
}

// Profile is a crate's docs.rs build profile as declared under
// [package.metadata.docs.rs] in Cargo.toml.
type Profile struct {
	AllFeatures       bool     `toml:"all-features"`
	NoDefaultFeatures bool     `toml:"no-default-features"`
	Features          []string `toml:"features"`
	DefaultTarget     string   `toml:"default-target"`
	Targets           []string `toml:"targets"`
	RustdocArgs       []string `toml:"rustdoc-args"`
	RustcArgs         []string `toml:"rustc-args"`
}

// Manifest is what a MetadataSource reports for one crate's source tree.
type Manifest struct {
	Package      PackageVersion
	Profile      Profile
	ProcMacro    bool
	Dependencies []Dependency // direct non-dev library deps, enumeration order
}

// BuildConfig is the resolved configuration for one rustdoc invocation.
// It is serialized to command-line arguments only by the generator.
type BuildConfig struct {
	AllFeatures       bool
	NoDefaultFeatures bool
	Features          []string
	Target            string // empty means the generator's default (host) target
	RustdocFlags      []string
	Env               map[string]string
	ProcMacro         bool
}

// Metadata is the resolver's result for one crate.
type Metadata struct {
	Package      PackageVersion
	Config       BuildConfig
	Dependencies []Dependency

	// Shadowed lists dependencies dropped because an earlier dependency
	// had the same package name (e.g. two renamed versions of one crate).
	Shadowed []Dependency
}

// SelectTarget applies the target-selection policy to a profile:
// the explicit default-target, else the first declared target, else none.
// Proc-macros never get a target override; their artifacts must load into
// the host compiler.
func SelectTarget(p Profile, procMacro bool) string {
	if procMacro {
		return ""
	}
	if p.DefaultTarget != "" {
		return p.DefaultTarget
	}
	if len(p.Targets) > 0 {
		return p.Targets[0]
	}
	return ""
}

// Config derives the BuildConfig for a manifest.
func (m *Manifest) Config() BuildConfig {
	cfg := BuildConfig{
		AllFeatures:       m.Profile.AllFeatures,
		NoDefaultFeatures: m.Profile.NoDefaultFeatures,
		Features:          slices.Clone(m.Profile.Features),
		Target:            SelectTarget(m.Profile, m.ProcMacro),
		RustdocFlags:      slices.Clone(m.Profile.RustdocArgs),
		ProcMacro:         m.ProcMacro,
	}
	if len(m.Profile.RustcArgs) > 0 {
		cfg.Env = map[string]string{"RUSTFLAGS": strings.Join(m.Profile.RustcArgs, " ")}
	}
	return cfg
}

// dedupeDependencies drops dependencies whose package name was already seen.
// Package names become link names under .deps, so only the first occurrence
// in enumeration order is kept; the rest are returned for logging.
func dedupeDependencies(deps []Dependency) (kept, dropped []Dependency, err error) {
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		if d.Name == "" || d.Version == "" {
			return nil, nil, fmt.Errorf("dependency %q has no name or version", d.LibName)
		}
		if seen[d.Name] {
			dropped = append(dropped, d)
			continue
		}
		seen[d.Name] = true
		kept = append(kept, d)
	}
	return kept, dropped, nil
}
