// Package store publishes documentation trees to a content-addressed store.
//
// Two implementations of [Store] are provided:
//
//   - [IPFS] talks to an IPFS daemon's HTTP API.
//   - [Local] keeps a Merkle DAG in a [Blockstore] (a directory or an S3
//     bucket), for machines without an IPFS daemon and for tests.
//
// Nodes are immutable. PatchAddLink never modifies its parent; it returns the
// hash of a new node, so every hash ever returned stays valid.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Hash identifies a node by its content.
type Hash string

// String returns the hash text.
func (h Hash) String() string { return string(h) }

var (
	// ErrNotFound is returned by GetLink when the parent has no link of
	// that name.
	ErrNotFound = errors.New("link not found")

	// ErrBlockNotFound is returned for a hash or key the store does not hold.
	ErrBlockNotFound = errors.New("block not found")
)

// Link is a named child of a directory node.
type Link struct {
	Name string `json:"name"`
	Hash Hash   `json:"hash"`
	Size uint64 `json:"size,omitempty"`
}

// Store is the set of content-store operations the builder and index need.
type Store interface {
	// Add publishes the file or directory tree at path. Identical content
	// always yields the identical hash.
	Add(ctx context.Context, path string) (Hash, error)

	// PatchAddLink returns a copy of the directory node parent with the link
	// name set to child, replacing any existing link of that name.
	PatchAddLink(ctx context.Context, parent Hash, name string, child Hash) (Hash, error)

	// GetLink resolves the named link of a directory node, or ErrNotFound.
	GetLink(ctx context.Context, parent Hash, name string) (Hash, error)

	// Links lists the links of a directory node in name order.
	Links(ctx context.Context, node Hash) ([]Link, error)

	// Pin protects hash and everything reachable from it from collection.
	Pin(ctx context.Context, hash Hash) error

	// EmptyNode returns the canonical empty directory node.
	EmptyNode(ctx context.Context) (Hash, error)
}

// ValidateLinkName rejects names that cannot be a single path segment.
func ValidateLinkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("invalid link name %q", name)
	}
	return nil
}
