// Package txn holds the engine-wide transaction state: the transaction-ID
// allocator and the timestamp counters that version history and visibility
// checks are built on. The state is created once during open, before
// recovery runs, and destroyed once during close after the cache is gone.
package txn

import (
	"sync/atomic"

	"github.com/petradb/petra/internal/errors"
)

// TransactionID represents a unique transaction identifier.
type TransactionID uint64

// Timestamp represents a logical timestamp for versioning.
type Timestamp uint64

// Global is the engine-wide transaction state.
type Global struct {
	nextTxnID atomic.Uint64

	// Timestamps are monotonic; oldest and stable only move forward.
	current atomic.Uint64
	oldest  atomic.Uint64
	stable  atomic.Uint64

	initialized atomic.Bool
}

// Init creates the global transaction state. Recovery generates
// transactions, so this must run before log replay.
func Init() (*Global, error) {
	g := &Global{}
	g.initialized.Store(true)
	return g, nil
}

// NextID allocates a transaction ID.
func (g *Global) NextID() (TransactionID, error) {
	if !g.initialized.Load() {
		return 0, errors.InternalErrorf("transaction state not initialized")
	}
	return TransactionID(g.nextTxnID.Add(1)), nil
}

// CurrentTimestamp returns the current timestamp without advancing it.
func (g *Global) CurrentTimestamp() Timestamp {
	return Timestamp(g.current.Load())
}

// NextTimestamp advances and returns the global timestamp.
func (g *Global) NextTimestamp() Timestamp {
	return Timestamp(g.current.Add(1))
}

// OldestTimestamp returns the oldest timestamp readers may use.
func (g *Global) OldestTimestamp() Timestamp {
	return Timestamp(g.oldest.Load())
}

// StableTimestamp returns the stable timestamp.
func (g *Global) StableTimestamp() Timestamp {
	return Timestamp(g.stable.Load())
}

// SetOldestTimestamp moves the oldest timestamp forward. Moving it backward
// is an error.
func (g *Global) SetOldestTimestamp(ts Timestamp) error {
	for {
		old := g.oldest.Load()
		if uint64(ts) < old {
			return errors.InternalErrorf("oldest timestamp cannot move backward")
		}
		if g.oldest.CompareAndSwap(old, uint64(ts)) {
			return nil
		}
	}
}

// SetStableTimestamp moves the stable timestamp forward. Moving it backward
// is an error.
func (g *Global) SetStableTimestamp(ts Timestamp) error {
	for {
		old := g.stable.Load()
		if uint64(ts) < old {
			return errors.InternalErrorf("stable timestamp cannot move backward")
		}
		if g.stable.CompareAndSwap(old, uint64(ts)) {
			return nil
		}
	}
}

// Destroy tears down the global transaction state. Destroying an already
// destroyed state is a no-op.
func (g *Global) Destroy() {
	g.initialized.Store(false)
}
