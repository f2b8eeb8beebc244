package engine

import "sync/atomic"

// Engine lifecycle flags. Flags are monotonic for the life of a handle: set
// once, never cleared until the handle is released.
const (
	// flagClosing is set at the top of Close, before service threads are
	// stopped.
	flagClosing uint32 = 1 << iota

	// flagClosingNoMoreOpens is set once service threads are down; no new
	// file opens are permitted after it.
	flagClosingNoMoreOpens

	// flagSalvage enables best-effort repair of corrupted files during
	// open.
	flagSalvage

	// flagLeakMemory skips session scratch reclamation during close.
	flagLeakMemory
)

// flagSet is an atomic bitset read by worker and caller threads without
// locking. set is an atomic read-modify-write, so a flag stored by the
// orchestrating thread is visible to any thread that subsequently loads the
// set; readers must go through has, not a cached copy.
type flagSet struct {
	bits atomic.Uint32
}

func (f *flagSet) set(flag uint32) {
	f.bits.Or(flag)
}

func (f *flagSet) has(flag uint32) bool {
	return f.bits.Load()&flag != 0
}

// Closing reports whether shutdown has begun. Worker threads poll this at
// safe points.
func (e *Engine) Closing() bool {
	return e.flags.has(flagClosing)
}

// NoMoreOpens reports whether new file opens are still permitted.
func (e *Engine) NoMoreOpens() bool {
	return e.flags.has(flagClosingNoMoreOpens)
}

// SalvageMode reports whether the engine is running in salvage mode.
func (e *Engine) SalvageMode() bool {
	return e.flags.has(flagSalvage)
}
