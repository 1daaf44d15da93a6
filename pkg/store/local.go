package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// HashPrefix marks hashes produced by Local.
const HashPrefix = "sd1-"

const (
	tagFile byte = 'f'
	tagDir  byte = 'd'

	pinPrefix = "pin-"
)

// Local is a content-addressed Merkle DAG kept in a Blockstore.
//
// A file is stored as one block holding its bytes. A directory is a block
// holding the canonical JSON of its links sorted by name. A node's hash is
// HashPrefix followed by the hex SHA-256 of its block, so hashes depend only
// on content.
type Local struct {
	blocks Blockstore
}

// NewLocal creates a store over blocks.
func NewLocal(blocks Blockstore) *Local {
	return &Local{blocks: blocks}
}

// dirNode is the encoded form of a directory.
type dirNode struct {
	V     int    `json:"v"`
	Links []Link `json:"links"`
}

// Add implements Store. Symbolic links and other special files are rejected.
func (l *Local) Add(ctx context.Context, path string) (Hash, error) {
	h, _, err := l.addPath(ctx, path)
	return h, err
}

func (l *Local) addPath(ctx context.Context, path string) (Hash, uint64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return "", 0, err
	}

	switch {
	case info.Mode().IsRegular():
		data, err := os.ReadFile(path)
		if err != nil {
			return "", 0, err
		}
		h, err := l.putBlock(ctx, tagFile, data)
		return h, uint64(len(data)), err

	case info.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", 0, err
		}
		links := make([]Link, 0, len(entries))
		var total uint64
		for _, e := range entries {
			h, size, err := l.addPath(ctx, filepath.Join(path, e.Name()))
			if err != nil {
				return "", 0, err
			}
			links = append(links, Link{Name: e.Name(), Hash: h, Size: size})
			total += size
		}
		h, err := l.putDir(ctx, links)
		return h, total, err

	default:
		return "", 0, fmt.Errorf("%s: unsupported file type %s", path, info.Mode().Type())
	}
}

// PatchAddLink implements Store.
func (l *Local) PatchAddLink(ctx context.Context, parent Hash, name string, child Hash) (Hash, error) {
	if err := ValidateLinkName(name); err != nil {
		return "", err
	}
	node, err := l.dir(ctx, parent)
	if err != nil {
		return "", err
	}
	size, err := l.size(ctx, child)
	if err != nil {
		return "", fmt.Errorf("child %s: %w", child, err)
	}

	links := slices.DeleteFunc(slices.Clone(node.Links), func(ln Link) bool { return ln.Name == name })
	links = append(links, Link{Name: name, Hash: child, Size: size})
	return l.putDir(ctx, links)
}

// GetLink implements Store.
func (l *Local) GetLink(ctx context.Context, parent Hash, name string) (Hash, error) {
	node, err := l.dir(ctx, parent)
	if err != nil {
		return "", err
	}
	for _, ln := range node.Links {
		if ln.Name == name {
			return ln.Hash, nil
		}
	}
	return "", ErrNotFound
}

// Links implements Store.
func (l *Local) Links(ctx context.Context, node Hash) ([]Link, error) {
	n, err := l.dir(ctx, node)
	if err != nil {
		return nil, err
	}
	return n.Links, nil
}

// Pin implements Store. Local never collects blocks, so a pin is only a
// record that hash was published as a root.
func (l *Local) Pin(ctx context.Context, hash Hash) error {
	ok, err := l.blocks.Has(ctx, string(hash))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pin %s: %w", hash, ErrBlockNotFound)
	}
	return l.blocks.Put(ctx, pinPrefix+string(hash), nil)
}

// Pinned reports whether hash has been pinned.
func (l *Local) Pinned(ctx context.Context, hash Hash) (bool, error) {
	return l.blocks.Has(ctx, pinPrefix+string(hash))
}

// EmptyNode implements Store.
func (l *Local) EmptyNode(ctx context.Context) (Hash, error) {
	return l.putDir(ctx, nil)
}

// Cat returns the bytes of a file node.
func (l *Local) Cat(ctx context.Context, hash Hash) ([]byte, error) {
	tag, body, err := l.block(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tag != tagFile {
		return nil, fmt.Errorf("%s is not a file", hash)
	}
	return body, nil
}

// Resolve walks a slash-separated path of link names from root.
func (l *Local) Resolve(ctx context.Context, root Hash, path string) (Hash, error) {
	h := root
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		next, err := l.GetLink(ctx, h, name)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		h = next
	}
	return h, nil
}

func (l *Local) putDir(ctx context.Context, links []Link) (Hash, error) {
	if links == nil {
		links = []Link{}
	}
	slices.SortFunc(links, func(a, b Link) int { return strings.Compare(a.Name, b.Name) })
	data, err := json.Marshal(dirNode{V: 1, Links: links})
	if err != nil {
		return "", err
	}
	return l.putBlock(ctx, tagDir, data)
}

func (l *Local) putBlock(ctx context.Context, tag byte, body []byte) (Hash, error) {
	block := make([]byte, 0, len(body)+1)
	block = append(block, tag)
	block = append(block, body...)

	sum := sha256.Sum256(block)
	h := Hash(HashPrefix + hex.EncodeToString(sum[:]))
	if err := l.blocks.Put(ctx, string(h), block); err != nil {
		return "", err
	}
	return h, nil
}

func (l *Local) block(ctx context.Context, hash Hash) (byte, []byte, error) {
	if !strings.HasPrefix(string(hash), HashPrefix) {
		return 0, nil, fmt.Errorf("invalid hash %q", hash)
	}
	data, err := l.blocks.Get(ctx, string(hash))
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return 0, nil, fmt.Errorf("%s: %w", hash, ErrBlockNotFound)
		}
		return 0, nil, err
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("block %s is empty", hash)
	}
	return data[0], data[1:], nil
}

func (l *Local) dir(ctx context.Context, hash Hash) (*dirNode, error) {
	tag, body, err := l.block(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tag != tagDir {
		return nil, fmt.Errorf("%s is not a directory", hash)
	}
	var n dirNode
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode %s: %w", hash, err)
	}
	return &n, nil
}

func (l *Local) size(ctx context.Context, hash Hash) (uint64, error) {
	tag, body, err := l.block(ctx, hash)
	if err != nil {
		return 0, err
	}
	if tag == tagFile {
		return uint64(len(body)), nil
	}
	var n dirNode
	if err := json.Unmarshal(body, &n); err != nil {
		return 0, fmt.Errorf("decode %s: %w", hash, err)
	}
	var total uint64
	for _, ln := range n.Links {
		total += ln.Size
	}
	return total, nil
}

var _ Store = (*Local)(nil)
