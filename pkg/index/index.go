// Package index maintains the global index of published documentation.
//
// The index is itself a node in the content store:
//
//	root/
//	  serde/
//	    1.0.196 -> <doc hash>
//	    1.0.197 -> <doc hash>
//	  itoa/
//	    1.0.10  -> <doc hash>
//
// Every update produces a new root; the previous root stays valid. The
// current root hash lives in a [Pointer] file and is only advanced by
// [Index.Commit].
//
// An entry, once recorded, is never silently changed. Adding a different hash
// for an existing (name, version) fails with [ErrConflict] unless Replace is
// set.
package index

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/stackdoc/pkg/deps"
	"github.com/matzehuels/stackdoc/pkg/errors"
	"github.com/matzehuels/stackdoc/pkg/store"
)

// ErrConflict is returned by Add when the index already maps the package
// version to a different hash.
var ErrConflict = errors.New(errors.ErrCodeIndexConflict, "index entry already exists with a different hash")

// Index is an open, mutable view of the global index.
type Index struct {
	store   store.Store
	pointer *Pointer
	root    store.Hash
	dirty   bool

	// Replace lets Add overwrite an entry that points elsewhere.
	Replace bool
}

// Open loads the root named by pointer, or starts from the empty node.
func Open(ctx context.Context, s store.Store, pointer *Pointer) (*Index, error) {
	root, err := pointer.Load()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open index")
	}
	if root == "" {
		root, err = s.EmptyNode(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "open index")
		}
	}
	return &Index{store: s, pointer: pointer, root: root}, nil
}

// Root returns the current, possibly uncommitted, root hash.
func (ix *Index) Root() store.Hash { return ix.root }

// Dirty reports whether Add changed the root since Open or Commit.
func (ix *Index) Dirty() bool { return ix.dirty }

// Add records hash as the documentation of pv. Re-adding the same hash is a
// no-op.
func (ix *Index) Add(ctx context.Context, pv deps.PackageVersion, hash store.Hash) error {
	if err := errors.ValidateLinkName(pv.Name); err != nil {
		return err
	}
	if err := errors.ValidateLinkName(pv.Version); err != nil {
		return err
	}

	nameNode, err := ix.link(ctx, ix.root, pv.Name)
	if err != nil {
		return err
	}
	if nameNode == "" {
		if nameNode, err = ix.store.EmptyNode(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeStore, err, "index add %s", pv)
		}
	}

	existing, err := ix.link(ctx, nameNode, pv.Version)
	if err != nil {
		return err
	}
	switch {
	case existing == hash:
		return nil
	case existing != "" && !ix.Replace:
		return errors.Wrap(errors.ErrCodeIndexConflict, ErrConflict,
			"%s is indexed as %s, refusing %s (use --replace)", pv, existing, hash)
	}

	nameNode, err = ix.store.PatchAddLink(ctx, nameNode, pv.Version, hash)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "index add %s", pv)
	}
	root, err := ix.store.PatchAddLink(ctx, ix.root, pv.Name, nameNode)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "index add %s", pv)
	}
	ix.root = root
	ix.dirty = true
	return nil
}

// Lookup returns the hash recorded for pv.
func (ix *Index) Lookup(ctx context.Context, pv deps.PackageVersion) (store.Hash, bool, error) {
	nameNode, err := ix.link(ctx, ix.root, pv.Name)
	if err != nil || nameNode == "" {
		return "", false, err
	}
	h, err := ix.link(ctx, nameNode, pv.Version)
	if err != nil || h == "" {
		return "", false, err
	}
	return h, true, nil
}

// Names lists the indexed crates, each linking to its version node.
func (ix *Index) Names(ctx context.Context) ([]store.Link, error) {
	links, err := ix.store.Links(ctx, ix.root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list index")
	}
	return links, nil
}

// Versions lists the indexed versions of one crate. An unknown crate yields
// no versions.
func (ix *Index) Versions(ctx context.Context, name string) ([]store.Link, error) {
	nameNode, err := ix.link(ctx, ix.root, name)
	if err != nil || nameNode == "" {
		return nil, err
	}
	links, err := ix.store.Links(ctx, nameNode)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list versions of %s", name)
	}
	return links, nil
}

// Commit pins the current root and advances the pointer to it.
func (ix *Index) Commit(ctx context.Context) error {
	if err := ix.store.Pin(ctx, ix.root); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "pin index root %s", ix.root)
	}
	if err := ix.pointer.Save(ix.root); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "commit index")
	}
	ix.dirty = false
	return nil
}

// link resolves name under parent, mapping a missing link to "".
func (ix *Index) link(ctx context.Context, parent store.Hash, name string) (store.Hash, error) {
	h, err := ix.store.GetLink(ctx, parent, name)
	if stderrors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStore, err, "index lookup %s", name)
	}
	return h, nil
}
