package catalog

import (
	"sync"

	"github.com/petradb/petra/internal/errors"
)

// Tracker groups catalog mutations into an atomic unit. Mutations made
// through a started tracker are applied immediately but remembered, so Abort
// can restore the catalog to its state at Begin. Required before any table
// creation during open.
type Tracker struct {
	mu     sync.Mutex
	cat    *Catalog
	active bool
	undo   []undoOp
}

type undoOp struct {
	key     string
	value   string
	existed bool
}

// NewTracker creates a tracker over the catalog.
func NewTracker(cat *Catalog) *Tracker {
	return &Tracker{cat: cat}
}

// Begin starts a tracked group of mutations.
func (t *Tracker) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return errors.InternalErrorf("metadata tracking already active")
	}
	t.active = true
	t.undo = t.undo[:0]
	return nil
}

// Insert adds or replaces an entry under tracking.
func (t *Tracker) Insert(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return errors.InternalErrorf("metadata tracking not active")
	}
	prev, err := t.cat.Get(key)
	t.undo = append(t.undo, undoOp{key: key, value: prev, existed: err == nil})
	return t.cat.Insert(key, value)
}

// Remove deletes an entry under tracking.
func (t *Tracker) Remove(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return errors.InternalErrorf("metadata tracking not active")
	}
	prev, err := t.cat.Get(key)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, undoOp{key: key, value: prev, existed: true})
	return t.cat.Remove(key)
}

// Commit makes the tracked mutations permanent.
func (t *Tracker) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return errors.InternalErrorf("metadata tracking not active")
	}
	t.active = false
	t.undo = t.undo[:0]
	return t.cat.Sync()
}

// Abort rolls back the tracked mutations in reverse order.
func (t *Tracker) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return errors.InternalErrorf("metadata tracking not active")
	}
	t.active = false

	var firstErr error
	for i := len(t.undo) - 1; i >= 0; i-- {
		op := t.undo[i]
		var err error
		if op.existed {
			err = t.cat.Insert(op.key, op.value)
		} else {
			err = t.cat.Remove(op.key)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.undo = t.undo[:0]
	return firstErr
}

// Destroy tears down the tracker, aborting any active group.
func (t *Tracker) Destroy() error {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()

	if active {
		return t.Abort()
	}
	return nil
}
