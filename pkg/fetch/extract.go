package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Extract unpacks a .crate archive (gzipped tar) into dir and returns the
// top-level directory it contains, normally <name>-<version>.
//
// Entries that would land outside dir are rejected. Symbolic links and
// other special entries are skipped.
func Extract(archive, dir string) (string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(archive), err)
	}
	defer gz.Close()

	root := ""
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filepath.Base(archive), err)
		}

		name, err := entryPath(hdr.Name)
		if err != nil {
			return "", err
		}
		if root == "" {
			root = strings.SplitN(name, "/", 2)[0]
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return "", err
			}
		}
	}

	if root == "" {
		return "", fmt.Errorf("%s is empty", filepath.Base(archive))
	}
	return filepath.Join(dir, root), nil
}

// entryPath cleans a tar entry name and rejects absolute paths and
// parent-directory traversal.
func entryPath(name string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("unsafe archive entry %q", name)
	}
	return clean, nil
}

func writeEntry(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
