package cache

import (
	"sync"
	"time"

	"github.com/petradb/petra/internal/log"
)

// EvictionServer drives background cache maintenance. It must start only
// after the history table exists, because draining dirty blocks can write
// version history, and it must stop after every other service thread during
// close.
type EvictionServer struct {
	cache  *Cache
	logger log.Logger

	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewEvictionServer creates the eviction server.
func NewEvictionServer(c *Cache, interval time.Duration, logger log.Logger) *EvictionServer {
	if interval <= 0 {
		interval = time.Second
	}
	return &EvictionServer{
		cache:    c,
		logger:   logger.With("subsystem", "eviction"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Name identifies the server in logs.
func (e *EvictionServer) Name() string { return "eviction" }

// Destroy stops the server; the uniform service teardown shape.
func (e *EvictionServer) Destroy() error {
	e.Stop()
	return nil
}

// Start launches the eviction thread.
func (e *EvictionServer) Start() {
	e.started = true
	e.wg.Add(1)
	go e.loop()
}

// Stop shuts the eviction thread down and drains pending writes. Safe to
// call on a never-started server.
func (e *EvictionServer) Stop() {
	if !e.started {
		return
	}
	e.started = false
	close(e.stopCh)
	e.wg.Wait()
	e.cache.Wait()
}

func (e *EvictionServer) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Applying buffered writes is what triggers evictions, and
			// with them the version-history hook.
			e.cache.Wait()
		case <-e.stopCh:
			return
		}
	}
}
