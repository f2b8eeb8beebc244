package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/petradb/petra/internal/log"
)

// capacityServer throttles aggregate write throughput. Writers reserve
// bytes against a budget the server refills once per second.
type capacityServer struct {
	engine *Engine
	logger log.Logger

	bytesPerSecond int64
	available      atomic.Int64

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

func newCapacityServer(e *Engine, bytesPerSecond int64) *capacityServer {
	return &capacityServer{
		engine:         e,
		logger:         e.logger.With("subsystem", "capacity"),
		bytesPerSecond: bytesPerSecond,
		stopCh:         make(chan struct{}),
	}
}

func (c *capacityServer) Name() string { return "capacity" }

func (c *capacityServer) start() {
	c.available.Store(c.bytesPerSecond)
	c.started = true
	c.wg.Add(1)
	go c.loop()
}

// Destroy stops the throttle thread. Safe on a never-started server.
func (c *capacityServer) Destroy() error {
	if !c.started {
		return nil
	}
	c.started = false
	close(c.stopCh)
	c.wg.Wait()
	return nil
}

func (c *capacityServer) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.available.Store(c.bytesPerSecond)
		case <-c.stopCh:
			return
		}
	}
}

// reserve debits n bytes from the budget, reporting whether the writer
// should back off. Debiting below zero is allowed; the next refill absorbs
// it.
func (c *capacityServer) reserve(n int64) bool {
	return c.available.Add(-n) >= 0
}
