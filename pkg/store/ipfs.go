package store

import (
	"context"
	"slices"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"
)

// DefaultIPFSAPI is the address of a local IPFS daemon's API.
const DefaultIPFSAPI = "localhost:5001"

// IPFS implements Store against an IPFS daemon.
//
// The shell client has no context support, so ctx is only checked before
// each call.
type IPFS struct {
	sh *shell.Shell
}

// NewIPFS creates a client for the daemon API at api ("host:port" or a URL).
func NewIPFS(api string) *IPFS {
	if api == "" {
		api = DefaultIPFSAPI
	}
	return &IPFS{sh: shell.NewShell(api)}
}

// Up reports whether the daemon is reachable.
func (s *IPFS) Up() bool { return s.sh.IsUp() }

// Add implements Store. Hidden files are skipped by the IPFS client.
func (s *IPFS) Add(ctx context.Context, path string) (Hash, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, err := s.sh.AddDir(path)
	return Hash(h), err
}

// PatchAddLink implements Store.
func (s *IPFS) PatchAddLink(ctx context.Context, parent Hash, name string, child Hash) (Hash, error) {
	if err := ValidateLinkName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, err := s.sh.PatchLink(string(parent), name, string(child), false)
	return Hash(h), err
}

// GetLink implements Store.
func (s *IPFS) GetLink(ctx context.Context, parent Hash, name string) (Hash, error) {
	links, err := s.Links(ctx, parent)
	if err != nil {
		return "", err
	}
	for _, ln := range links {
		if ln.Name == name {
			return ln.Hash, nil
		}
	}
	return "", ErrNotFound
}

// Links implements Store.
func (s *IPFS) Links(ctx context.Context, node Hash) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj, err := s.sh.ObjectGet(string(node))
	if err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(obj.Links))
	for _, ln := range obj.Links {
		links = append(links, Link{Name: ln.Name, Hash: Hash(ln.Hash), Size: ln.Size})
	}
	slices.SortFunc(links, func(a, b Link) int { return strings.Compare(a.Name, b.Name) })
	return links, nil
}

// Pin implements Store.
func (s *IPFS) Pin(ctx context.Context, hash Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sh.Pin(string(hash))
}

// EmptyNode implements Store.
func (s *IPFS) EmptyNode(ctx context.Context) (Hash, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, err := s.sh.NewObject("unixfs-dir")
	return Hash(h), err
}

var _ Store = (*IPFS)(nil)
