package engine

import "time"

// Clock returns elapsed microseconds on a monotonic scale. It exists only
// for deadline arithmetic; nothing in the engine interprets its zero point.
type Clock func() int64

var processEpoch = time.Now()

// monotonicClock is the default clock. It never returns zero, so an armed
// timer's scratch fields are always both non-zero.
func monotonicClock() int64 {
	return time.Since(processEpoch).Microseconds() + 1
}
