package cache

import (
	"sync"
)

// Pool is a named shared cache pool. Instances configured with the same pool
// name register their caches so pool-wide accounting can see them. A cache
// must disconnect before it is destroyed; the pool holds a back-reference.
type Pool struct {
	name string

	mu      sync.Mutex
	members map[*Cache]struct{}
}

var (
	poolsMu sync.Mutex
	pools   = make(map[string]*Pool)
)

// GetPool returns the named pool, creating it on first use.
func GetPool(name string) *Pool {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	p, ok := pools[name]
	if !ok {
		p = &Pool{name: name, members: make(map[*Cache]struct{})}
		pools[name] = p
	}
	return p
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Connect registers a cache with the pool.
func (p *Pool) Connect(c *Cache) {
	p.mu.Lock()
	p.members[c] = struct{}{}
	p.mu.Unlock()
	c.pool = p
}

// Disconnect removes a cache from the pool. Disconnecting an unregistered
// cache is a no-op.
func (p *Pool) Disconnect(c *Cache) {
	p.mu.Lock()
	delete(p.members, c)
	p.mu.Unlock()
	c.pool = nil
}

// Size returns the number of connected caches.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}
