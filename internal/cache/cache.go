// Package cache implements the engine's block cache on top of an
// admission-controlled ristretto store, plus the eviction server thread and
// the cross-instance shared cache pool.
package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/petradb/petra/internal/log"
)

// Config holds block-cache configuration.
type Config struct {
	// MaxBytes is the total cache budget.
	MaxBytes int64

	// NumCounters sizes the admission frequency sketch; roughly 10x the
	// expected number of resident blocks.
	NumCounters int64
}

// block is the cached unit. The key is carried in the value because the
// store only exposes hashed keys to the eviction callback.
type block struct {
	key  string
	data []byte
}

// Cache is the engine block cache.
type Cache struct {
	logger log.Logger
	store  *ristretto.Cache[string, block]

	pool      *Pool
	destroyed atomic.Bool

	// historyHook, when set, receives evicted blocks so their version
	// history can be persisted. Installed only once the history table
	// exists.
	historyHook atomic.Pointer[func(key string, data []byte)]
}

// Create creates the block cache.
func Create(cfg Config, logger log.Logger) (*Cache, error) {
	if cfg.MaxBytes < 1 {
		return nil, fmt.Errorf("cache budget must be positive")
	}

	c := &Cache{
		logger: logger.With("subsystem", "cache"),
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, block]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxBytes,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[block]) {
			if hook := c.historyHook.Load(); hook != nil {
				(*hook)(item.Value.key, item.Value.data)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	c.store = store
	return c, nil
}

// SetHistoryHook installs the version-history write hook invoked on
// eviction. Must be called after the history table exists and before the
// eviction server starts.
func (c *Cache) SetHistoryHook(fn func(key string, data []byte)) {
	c.historyHook.Store(&fn)
}

// Set stores a block, costed by its size.
func (c *Cache) Set(key string, data []byte) bool {
	if c.destroyed.Load() {
		return false
	}
	return c.store.Set(key, block{key: key, data: data}, int64(len(data)))
}

// Get retrieves a block.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.destroyed.Load() {
		return nil, false
	}
	b, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	return b.data, true
}

// Wait blocks until buffered writes have been applied.
func (c *Cache) Wait() {
	if !c.destroyed.Load() {
		c.store.Wait()
	}
}

// Metrics returns the underlying cache metrics.
func (c *Cache) Metrics() *ristretto.Metrics {
	return c.store.Metrics
}

// Destroy releases the cache. Destroying twice is a no-op. The cache must
// already be disconnected from any shared pool.
func (c *Cache) Destroy() error {
	if !c.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	if c.pool != nil {
		return fmt.Errorf("cache destroyed while still connected to pool %q", c.pool.Name())
	}
	c.store.Close()
	return nil
}
