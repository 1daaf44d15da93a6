package rustdoc

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stackdoc/pkg/depgraph"
)

// RelativeDeps returns the path from a file at depth directories below the
// documentation root to the root's .deps node.
func RelativeDeps(depth int) string {
	return strings.Repeat("../", depth) + depgraph.DepsName
}

// Rewrite replaces Placeholder in every regular file under docDir with the
// file's relative path to .deps and returns the number of files changed.
//
// A page at docDir/index.html links to ".deps/foo/..."; one at
// docDir/a/b/page.html links to "../../.deps/foo/...".
func Rewrite(docDir string) (int, error) {
	placeholder := []byte(Placeholder)
	changed := 0

	err := filepath.WalkDir(docDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !bytes.Contains(data, placeholder) {
			return nil
		}

		rel, err := filepath.Rel(docDir, path)
		if err != nil {
			return err
		}
		depth := strings.Count(filepath.ToSlash(rel), "/")
		data = bytes.ReplaceAll(data, placeholder, []byte(RelativeDeps(depth)))

		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
			return err
		}
		changed++
		return nil
	})
	return changed, err
}
