package cache

import (
	"context"
	"errors"
	"time"
)

// Layered puts a fast cache (usually a MemoryCache) in front of a durable
// one. Reads try the front first and fill it on a back hit; writes and
// deletes go to both.
type Layered struct {
	front Cache
	back  Cache
}

// NewLayered creates a read-through cache.
func NewLayered(front, back Cache) *Layered {
	return &Layered{front: front, back: back}
}

// Get retrieves a value, populating the front layer on a back hit.
// Front-layer errors are treated as misses.
func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := l.front.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := l.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.front.Set(ctx, key, data, 0)
	return data, true, nil
}

// Set writes the durable layer first, then the front.
func (l *Layered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := l.back.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	return l.front.Set(ctx, key, data, ttl)
}

// Delete removes key from both layers.
func (l *Layered) Delete(ctx context.Context, key string) error {
	return errors.Join(l.front.Delete(ctx, key), l.back.Delete(ctx, key))
}

// Close closes both layers.
func (l *Layered) Close() error {
	return errors.Join(l.front.Close(), l.back.Close())
}

var _ Cache = (*Layered)(nil)
