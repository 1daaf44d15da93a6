package store

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackdoc/pkg/observability"
)

// Instrumented wraps a Store, reporting every call to the store hooks and
// logging it at debug level.
type Instrumented struct {
	inner  Store
	logger *log.Logger
}

// Instrument wraps s. A nil logger disables logging.
func Instrument(s Store, logger *log.Logger) *Instrumented {
	return &Instrumented{inner: s, logger: logger}
}

func (s *Instrumented) done(ctx context.Context, op string, start time.Time, err error, kv ...any) {
	d := time.Since(start)
	observability.Store().OnStoreOp(ctx, op, d, err)
	if s.logger != nil {
		s.logger.Debug("store "+op, append(kv, "duration", d, "err", err)...)
	}
}

// Add implements Store.
func (s *Instrumented) Add(ctx context.Context, path string) (Hash, error) {
	start := time.Now()
	h, err := s.inner.Add(ctx, path)
	s.done(ctx, "add", start, err, "path", path, "hash", h)
	return h, err
}

// PatchAddLink implements Store.
func (s *Instrumented) PatchAddLink(ctx context.Context, parent Hash, name string, child Hash) (Hash, error) {
	start := time.Now()
	h, err := s.inner.PatchAddLink(ctx, parent, name, child)
	s.done(ctx, "patch", start, err, "parent", parent, "name", name, "hash", h)
	return h, err
}

// GetLink implements Store. A missing link is not reported as a failure.
func (s *Instrumented) GetLink(ctx context.Context, parent Hash, name string) (Hash, error) {
	start := time.Now()
	h, err := s.inner.GetLink(ctx, parent, name)
	reported := err
	if errors.Is(err, ErrNotFound) {
		reported = nil
	}
	s.done(ctx, "get_link", start, reported, "parent", parent, "name", name)
	return h, err
}

// Links implements Store.
func (s *Instrumented) Links(ctx context.Context, node Hash) ([]Link, error) {
	start := time.Now()
	links, err := s.inner.Links(ctx, node)
	s.done(ctx, "links", start, err, "node", node)
	return links, err
}

// Pin implements Store.
func (s *Instrumented) Pin(ctx context.Context, hash Hash) error {
	start := time.Now()
	err := s.inner.Pin(ctx, hash)
	s.done(ctx, "pin", start, err, "hash", hash)
	return err
}

// EmptyNode implements Store.
func (s *Instrumented) EmptyNode(ctx context.Context) (Hash, error) {
	start := time.Now()
	h, err := s.inner.EmptyNode(ctx)
	s.done(ctx, "empty_node", start, err)
	return h, err
}

var _ Store = (*Instrumented)(nil)
