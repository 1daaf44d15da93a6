package index

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stackdoc/pkg/store"
)

// Pointer is the file holding the hash of the current index root.
type Pointer struct {
	path string
}

// NewPointer returns a pointer stored at path.
func NewPointer(path string) *Pointer {
	return &Pointer{path: path}
}

// Path returns the pointer file location.
func (p *Pointer) Path() string { return p.path }

// Load returns the saved root, or "" if nothing was saved yet.
func (p *Pointer) Load() (store.Hash, error) {
	data, err := os.ReadFile(p.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index pointer: %w", err)
	}
	return store.Hash(strings.TrimSpace(string(data))), nil
}

// Save replaces the pointer with root. Readers see either the old or the
// new value, never a partial write.
func (p *Pointer) Save(root store.Hash) error {
	if root == "" {
		return fmt.Errorf("save index pointer: empty root")
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save index pointer: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("save index pointer: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(root.String() + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("save index pointer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save index pointer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save index pointer: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("save index pointer: %w", err)
	}
	return nil
}
