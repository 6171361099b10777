// Package ristretto implements the cache port on dgraph-io/ristretto. It is
// the in-process L1 for tenant lookups and availability templates.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/FerDeGante/Eventora-sub000/internal/config"
	"github.com/FerDeGante/Eventora-sub000/internal/port/cache"
)

var _ cache.Cache = (*Cache)(nil)

// Cache is a size-bounded in-process cache.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache bounded by cfg.MaxSizeMB of stored values.
func New(cfg config.Cache) (*Cache, error) {
	maxCost := cfg.MaxSizeMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Entries are small JSON documents; assume ~1KiB each and keep ten
		// counters per expected entry.
		NumCounters: max(maxCost>>10*10, 1000),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	return val, found, nil
}

// Set stores value for ttl. Admission is asynchronous; a Get immediately
// after Set may miss until Wait returns.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() { c.c.Wait() }

// Close shuts down the cache and releases resources.
func (c *Cache) Close() { c.c.Close() }
