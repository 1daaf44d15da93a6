package rust

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/execx"
)

// commandRunner is the subset of [execx.Runner] used to call cargo.
type commandRunner interface {
	Output(ctx context.Context, c execx.Command) ([]byte, error)
}

// CargoSource implements [deps.MetadataSource] with `cargo metadata` and the
// docs.rs profile from Cargo.toml.
type CargoSource struct {
	runner    commandRunner
	cargo     string
	toolchain string
}

// NewCargoSource creates a source that runs cargo (default "cargo") through
// runner. A non-empty toolchain is passed as "+toolchain".
func NewCargoSource(runner *execx.Runner, cargo, toolchain string) *CargoSource {
	if cargo == "" {
		cargo = "cargo"
	}
	return &CargoSource{runner: runner, cargo: cargo, toolchain: toolchain}
}

// ReadMetadata implements [deps.MetadataSource].
//
// The profile is read first so that dependency resolution sees the same
// feature set the documentation build will use.
func (c *CargoSource) ReadMetadata(ctx context.Context, manifestPath string) (*deps.Manifest, error) {
	profile, err := ReadProfile(manifestPath)
	if err != nil {
		return nil, err
	}

	out, err := c.runner.Output(ctx, execx.Command{
		Name: c.cargo,
		Args: c.metadataArgs(manifestPath, profile),
		Dir:  filepath.Dir(manifestPath),
	})
	if err != nil {
		return nil, fmt.Errorf("cargo metadata: %w", err)
	}

	m, err := ParseMetadata(out, manifestPath)
	if err != nil {
		return nil, err
	}
	m.Profile = profile
	return m, nil
}

func (c *CargoSource) metadataArgs(manifestPath string, p deps.Profile) []string {
	var args []string
	if c.toolchain != "" {
		args = append(args, "+"+c.toolchain)
	}
	args = append(args, "metadata", "--format-version", "1", "--manifest-path", manifestPath)
	if p.AllFeatures {
		args = append(args, "--all-features")
	}
	if p.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if len(p.Features) > 0 {
		args = append(args, "--features", strings.Join(p.Features, ","))
	}
	return args
}

// ReadProfile parses [package.metadata.docs.rs] from a Cargo.toml.
// A manifest without the table yields the zero profile.
func ReadProfile(manifestPath string) (deps.Profile, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return deps.Profile{}, err
	}

	var manifest cargoToml
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return deps.Profile{}, fmt.Errorf("parse %s: %w", filepath.Base(manifestPath), err)
	}
	return manifest.Package.Metadata.Docs.Rs, nil
}

// ParseMetadata decodes `cargo metadata --format-version 1` output and
// extracts the root package, its proc-macro flag and its direct non-dev
// library dependencies in resolve order.
func ParseMetadata(data []byte, manifestPath string) (*deps.Manifest, error) {
	var md cargoMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode cargo metadata: %w", err)
	}
	if md.Resolve == nil {
		return nil, fmt.Errorf("cargo metadata has no resolve graph")
	}

	byID := make(map[string]*cargoPackage, len(md.Packages))
	for i := range md.Packages {
		byID[md.Packages[i].ID] = &md.Packages[i]
	}

	root, err := md.rootPackage(byID, manifestPath)
	if err != nil {
		return nil, err
	}

	m := &deps.Manifest{
		Package:   deps.PackageVersion{Name: root.Name, Version: root.Version},
		ProcMacro: root.isProcMacro(),
	}

	node := md.Resolve.node(root.ID)
	if node == nil {
		return nil, fmt.Errorf("package %s missing from resolve graph", root.ID)
	}

	for _, d := range node.Deps {
		if !d.isLibrary() {
			continue
		}
		pkg, ok := byID[d.Pkg]
		if !ok {
			return nil, fmt.Errorf("dependency %s of %s not in package list", d.Pkg, root.Name)
		}
		m.Dependencies = append(m.Dependencies, deps.Dependency{
			PackageVersion: deps.PackageVersion{Name: pkg.Name, Version: pkg.Version},
			LibName:        d.Name,
			Rename:         root.renameOf(pkg.Name),
		})
	}
	return m, nil
}

// cargoToml is the part of Cargo.toml stackdoc reads. The docs.rs table is
// spelled [package.metadata.docs.rs], which TOML nests as docs → rs.
type cargoToml struct {
	Package struct {
		Metadata struct {
			Docs struct {
				Rs deps.Profile `toml:"rs"`
			} `toml:"docs"`
		} `toml:"metadata"`
	} `toml:"package"`
}

type cargoMetadata struct {
	Packages []cargoPackage `json:"packages"`
	Resolve  *cargoResolve  `json:"resolve"`
}

type cargoPackage struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	ManifestPath string        `json:"manifest_path"`
	Targets      []cargoTarget `json:"targets"`
	Dependencies []cargoDep    `json:"dependencies"`
}

type cargoTarget struct {
	Name       string   `json:"name"`
	Kind       []string `json:"kind"`
	CrateTypes []string `json:"crate_types"`
}

type cargoDep struct {
	Name   string  `json:"name"`
	Rename *string `json:"rename"`
	Kind   *string `json:"kind"`
}

type cargoResolve struct {
	Root  *string       `json:"root"`
	Nodes []resolveNode `json:"nodes"`
}

type resolveNode struct {
	ID   string    `json:"id"`
	Deps []nodeDep `json:"deps"`
}

type nodeDep struct {
	Name     string    `json:"name"`
	Pkg      string    `json:"pkg"`
	DepKinds []depKind `json:"dep_kinds"`
}

type depKind struct {
	Kind   *string `json:"kind"`
	Target *string `json:"target"`
}

// rootPackage finds the package cargo resolved for. resolve.root is null for
// virtual manifests, so fall back to matching the manifest path.
func (md *cargoMetadata) rootPackage(byID map[string]*cargoPackage, manifestPath string) (*cargoPackage, error) {
	if md.Resolve.Root != nil {
		if p, ok := byID[*md.Resolve.Root]; ok {
			return p, nil
		}
		return nil, fmt.Errorf("resolve root %s not in package list", *md.Resolve.Root)
	}
	want, _ := filepath.Abs(manifestPath)
	for i := range md.Packages {
		if got, _ := filepath.Abs(md.Packages[i].ManifestPath); got == want {
			return &md.Packages[i], nil
		}
	}
	return nil, fmt.Errorf("no package for manifest %s", manifestPath)
}

func (r *cargoResolve) node(id string) *resolveNode {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

func (p *cargoPackage) isProcMacro() bool {
	for _, t := range p.Targets {
		if slices.Contains(t.Kind, "proc-macro") {
			return true
		}
	}
	return false
}

// renameOf returns the rename declared for a dependency on pkgName.
func (p *cargoPackage) renameOf(pkgName string) string {
	for _, d := range p.Dependencies {
		if d.Name == pkgName && d.Rename != nil && depKindOf(d.Kind) != deps.KindDev {
			return *d.Rename
		}
	}
	return ""
}

// isLibrary reports whether the resolved edge is used outside dev builds.
// Older cargo versions omit dep_kinds entirely; those edges count as normal.
func (d nodeDep) isLibrary() bool {
	if len(d.DepKinds) == 0 {
		return true
	}
	for _, k := range d.DepKinds {
		if depKindOf(k.Kind) != deps.KindDev {
			return true
		}
	}
	return false
}

func depKindOf(kind *string) deps.DepKind {
	if kind == nil {
		return deps.KindNormal
	}
	return deps.DepKind(*kind)
}
