// Package fetch downloads crate source archives from crates.io, keeps them
// in an on-disk archive cache and unpacks them into a build workspace.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/integrations/crates"
)

// Registry is the subset of the crates.io client the fetcher uses.
type Registry interface {
	FetchVersion(ctx context.Context, crate, version string, refresh bool) (*crates.VersionInfo, error)
	Download(ctx context.Context, crate, version string, w io.Writer) (int64, error)
}

// Options configures a Fetcher.
type Options struct {
	// Dir holds cached archives as <name>-<version>.crate.
	Dir string

	// Verify checks each download against the registry's SHA-256 checksum.
	Verify bool

	Logger *log.Logger
}

// Fetcher downloads and caches crate archives. Archives are keyed by
// identity and never expire; a published crate version is immutable.
type Fetcher struct {
	registry Registry
	dir      string
	verify   bool
	logger   *log.Logger
}

// New creates a Fetcher, creating the archive directory if needed.
func New(registry Registry, opts Options) (*Fetcher, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{registry: registry, dir: opts.Dir, verify: opts.Verify, logger: logger}, nil
}

// ArchivePath is where the archive for pv is cached.
func (f *Fetcher) ArchivePath(pv deps.PackageVersion) string {
	return filepath.Join(f.dir, pv.Name+"-"+pv.Version+".crate")
}

// Fetch returns the path of the cached archive for pv, downloading it first
// if it is not cached yet.
func (f *Fetcher) Fetch(ctx context.Context, pv deps.PackageVersion) (string, error) {
	path := f.ArchivePath(pv)
	if _, err := os.Stat(path); err == nil {
		f.logger.Debug("archive cached", "crate", pv, "path", path)
		return path, nil
	}

	var checksum string
	if f.verify {
		info, err := f.registry.FetchVersion(ctx, pv.Name, pv.Version, false)
		if err != nil {
			return "", err
		}
		if info.Yanked {
			f.logger.Warn("crate version is yanked", "crate", pv)
		}
		checksum = info.Checksum
	}

	if err := f.download(ctx, pv, path, checksum); err != nil {
		return "", err
	}
	f.logger.Debug("archive downloaded", "crate", pv, "path", path)
	return path, nil
}

// Source fetches pv and unpacks it under workDir, returning the crate's
// source directory.
func (f *Fetcher) Source(ctx context.Context, pv deps.PackageVersion, workDir string) (string, error) {
	archive, err := f.Fetch(ctx, pv)
	if err != nil {
		return "", err
	}
	return Extract(archive, workDir)
}

// download writes to a temporary file and renames it into place only after
// the checksum (if any) matches.
func (f *Fetcher) download(ctx context.Context, pv deps.PackageVersion, path, checksum string) error {
	tmp, err := os.CreateTemp(f.dir, ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := f.registry.Download(ctx, pv.Name, pv.Version, io.MultiWriter(tmp, h)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if checksum != "" {
		if got := hex.EncodeToString(h.Sum(nil)); got != checksum {
			return fmt.Errorf("checksum mismatch for %s: got %s, want %s", pv, got, checksum)
		}
	}
	return os.Rename(tmp.Name(), path)
}
