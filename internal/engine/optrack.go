package engine

import (
	"fmt"
	"sync"
)

// opTracker is the operation-tracking instrumentation: per-session-name
// counts of timed operations, flushed to the trace file during close when
// tracing is enabled.
type opTracker struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newOpTracker() *opTracker {
	return &opTracker{counts: make(map[string]int64)}
}

func (t *opTracker) record(name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.counts[name]++
	t.mu.Unlock()
}

// teardown flushes the tracked counts and drops the tracker state.
func (e *Engine) optrackTeardown() error {
	t := e.optrack
	if t == nil {
		return nil
	}
	e.optrack = nil

	t.mu.Lock()
	defer t.mu.Unlock()
	if e.traceFile == nil {
		return nil
	}
	for name, count := range t.counts {
		if _, err := fmt.Fprintf(e.traceFile, "ops %s %d\n", name, count); err != nil {
			return err
		}
	}
	return nil
}
