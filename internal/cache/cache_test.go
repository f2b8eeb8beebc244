package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petradb/petra/internal/log"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Create(Config{MaxBytes: 1 << 20, NumCounters: 1e4}, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Destroy() })
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := testCache(t)

	require.True(t, c.Set("block:1", []byte("payload")))
	c.Wait()

	data, ok := c.Get("block:1")
	require.True(t, ok)
	require.Equal(t, []byte("payload"), data)

	_, ok = c.Get("block:missing")
	require.False(t, ok)
}

func TestCacheRejectsBadBudget(t *testing.T) {
	_, err := Create(Config{MaxBytes: 0, NumCounters: 1e4}, log.Discard())
	require.Error(t, err)
}

func TestCacheDestroy(t *testing.T) {
	c, err := Create(Config{MaxBytes: 1 << 20, NumCounters: 1e4}, log.Discard())
	require.NoError(t, err)

	require.NoError(t, c.Destroy())
	require.NoError(t, c.Destroy())

	// A destroyed cache refuses reads and writes.
	require.False(t, c.Set("block:1", []byte("x")))
	_, ok := c.Get("block:1")
	require.False(t, ok)
}

func TestCacheDestroyWhileConnected(t *testing.T) {
	c, err := Create(Config{MaxBytes: 1 << 20, NumCounters: 1e4}, log.Discard())
	require.NoError(t, err)

	p := GetPool("destroy-test")
	p.Connect(c)
	require.Error(t, c.Destroy())

	// After disconnect a fresh cache tears down cleanly.
	c2, err := Create(Config{MaxBytes: 1 << 20, NumCounters: 1e4}, log.Discard())
	require.NoError(t, err)
	p.Connect(c2)
	p.Disconnect(c2)
	require.NoError(t, c2.Destroy())
}

func TestPool(t *testing.T) {
	p := GetPool("pool-test")
	require.Same(t, p, GetPool("pool-test"))
	require.NotSame(t, p, GetPool("pool-test-other"))
	require.Equal(t, "pool-test", p.Name())

	c := testCache(t)
	p.Connect(c)
	require.Equal(t, 1, p.Size())

	p.Disconnect(c)
	require.Equal(t, 0, p.Size())

	// Disconnecting an unregistered cache is a no-op.
	p.Disconnect(c)
	require.Equal(t, 0, p.Size())
}

func TestEvictionServer(t *testing.T) {
	c := testCache(t)

	s := NewEvictionServer(c, 10*time.Millisecond, log.Discard())
	s.Start()

	require.True(t, c.Set("block:1", []byte("payload")))
	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get("block:1")
	require.True(t, ok)

	require.NoError(t, s.Destroy())

	// Stopping a never-started server is safe.
	s2 := NewEvictionServer(c, time.Second, log.Discard())
	s2.Stop()
}

func TestHistoryHookOnEviction(t *testing.T) {
	// A budget that holds one block but not two, so the second admission
	// evicts the first.
	c, err := Create(Config{MaxBytes: 4096, NumCounters: 100}, log.Discard())
	require.NoError(t, err)
	defer c.Destroy()

	evicted := make(chan string, 64)
	c.SetHistoryHook(func(key string, data []byte) {
		select {
		case evicted <- key:
		default:
		}
	})

	payload := make([]byte, 3000)
	for i := 0; i < 16; i++ {
		c.Set("block:a", payload)
		c.Wait()
		c.Set("block:b", payload)
		c.Wait()
	}

	select {
	case <-evicted:
	case <-time.After(2 * time.Second):
		t.Fatal("no eviction observed")
	}
}
