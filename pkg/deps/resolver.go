package deps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/stackdoc/pkg/errors"
)

// ManifestFile is the manifest file name expected at the root of a source tree.
const ManifestFile = "Cargo.toml"

// MetadataSource reads a crate's manifest and dependency metadata.
type MetadataSource interface {
	// ReadMetadata returns the build profile, proc-macro flag and direct
	// dependencies of the package whose manifest is at manifestPath.
	ReadMetadata(ctx context.Context, manifestPath string) (*Manifest, error)
}

// Resolver turns a source tree into build configuration and a dependency list.
type Resolver struct {
	source MetadataSource
}

// NewResolver creates a Resolver backed by source.
func NewResolver(source MetadataSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve reads the manifest at the root of sourceDir.
//
// Returns an [errors.ErrCodeMetadata] error when the manifest is missing, the
// source fails, or a dependency has no identity. Proc-macro crates get an
// empty target regardless of their profile.
func (r *Resolver) Resolve(ctx context.Context, sourceDir string) (*Metadata, error) {
	path := filepath.Join(sourceDir, ManifestFile)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "manifest not found in %s", sourceDir)
	}

	m, err := r.source.ReadMetadata(ctx, path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "read metadata %s", path)
	}
	kept, dropped, err := dedupeDependencies(m.Dependencies)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "read metadata %s", path)
	}

	return &Metadata{
		Package:      m.Package,
		Config:       m.Config(),
		Dependencies: kept,
		Shadowed:     dropped,
	}, nil
}
