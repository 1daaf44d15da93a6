package rustdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeDeps(t *testing.T) {
	tests := []struct {
		depth int
		want  string
	}{
		{0, ".deps"},
		{1, "../.deps"},
		{2, "../../.deps"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeDeps(tt.depth))
	}
}

func TestRewrite(t *testing.T) {
	dir := t.TempDir()
	link := `<a href="` + Placeholder + `/foo/foo/index.html">foo</a>`

	files := map[string]string{
		"index.html":           link,
		"mycrate/index.html":   link,
		"mycrate/de/page.html": link + link,
		"static/main.css":      "body {}",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	n, err := Rewrite(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, `<a href=".deps/foo/foo/index.html">foo</a>`, read("index.html"))
	assert.Equal(t, `<a href="../.deps/foo/foo/index.html">foo</a>`, read("mycrate/index.html"))
	assert.Equal(t, `<a href="../../.deps/foo/foo/index.html">foo</a><a href="../../.deps/foo/foo/index.html">foo</a>`,
		read("mycrate/de/page.html"))
	assert.Equal(t, "body {}", read("static/main.css"))

	// A second pass finds nothing left to rewrite.
	n, err = Rewrite(dir)
	require.NoError(t, err)
	assert.Zero(t, n)
}
