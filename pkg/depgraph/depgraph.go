// Package depgraph assembles the ".deps" node attached to every published
// documentation tree: one named link per successfully built dependency.
package depgraph

import (
	"context"
	"fmt"

	"github.com/matzehuels/stackdoc/pkg/store"
)

// DepsName is the link name of the dependency node under a documentation
// root. Rewritten rustdoc pages refer to it by relative path.
const DepsName = ".deps"

// Link is one published dependency.
type Link struct {
	Name string     // package name, the link name under .deps
	Lib  string     // extern crate name used by the dependent
	Hash store.Hash // published documentation of the dependency
}

// Build creates a node with one child per link, named by package name.
// Zero links yield the store's canonical empty node. Duplicate names are an
// error; package names are unique within one crate's dependency set.
func Build(ctx context.Context, s store.Store, links []Link) (store.Hash, error) {
	node, err := s.EmptyNode(ctx)
	if err != nil {
		return "", fmt.Errorf("empty node: %w", err)
	}

	seen := make(map[string]bool, len(links))
	for _, l := range links {
		if seen[l.Name] {
			return "", fmt.Errorf("duplicate dependency link %q", l.Name)
		}
		seen[l.Name] = true

		node, err = s.PatchAddLink(ctx, node, l.Name, l.Hash)
		if err != nil {
			return "", fmt.Errorf("link %s: %w", l.Name, err)
		}
	}
	return node, nil
}

// Attach links deps under doc as DepsName and returns the new root.
func Attach(ctx context.Context, s store.Store, doc, deps store.Hash) (store.Hash, error) {
	h, err := s.PatchAddLink(ctx, doc, DepsName, deps)
	if err != nil {
		return "", fmt.Errorf("attach %s: %w", DepsName, err)
	}
	return h, nil
}
