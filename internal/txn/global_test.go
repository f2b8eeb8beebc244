package txn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalIDs(t *testing.T) {
	g, err := Init()
	require.NoError(t, err)
	defer g.Destroy()

	id1, err := g.NextID()
	require.NoError(t, err)
	id2, err := g.NextID()
	require.NoError(t, err)
	require.Greater(t, id2, id1)
}

func TestGlobalIDsConcurrent(t *testing.T) {
	g, err := Init()
	require.NoError(t, err)
	defer g.Destroy()

	const workers = 8
	const perWorker = 1000

	var mu sync.Mutex
	seen := make(map[TransactionID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := g.NextID()
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, workers*perWorker)
}

func TestGlobalTimestamps(t *testing.T) {
	g, err := Init()
	require.NoError(t, err)
	defer g.Destroy()

	require.Equal(t, Timestamp(0), g.CurrentTimestamp())
	require.Equal(t, Timestamp(1), g.NextTimestamp())
	require.Equal(t, Timestamp(1), g.CurrentTimestamp())

	require.NoError(t, g.SetOldestTimestamp(5))
	require.Equal(t, Timestamp(5), g.OldestTimestamp())
	require.Error(t, g.SetOldestTimestamp(3))
	require.Equal(t, Timestamp(5), g.OldestTimestamp())

	require.NoError(t, g.SetStableTimestamp(10))
	require.Equal(t, Timestamp(10), g.StableTimestamp())
	require.Error(t, g.SetStableTimestamp(9))

	// Setting the same value again is allowed.
	require.NoError(t, g.SetStableTimestamp(10))
}

func TestGlobalDestroy(t *testing.T) {
	g, err := Init()
	require.NoError(t, err)

	g.Destroy()
	g.Destroy()

	_, err = g.NextID()
	require.Error(t, err)
}
