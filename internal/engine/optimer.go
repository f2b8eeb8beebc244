package engine

// Cooperative operation deadline timer. The timer is advisory: it never
// interrupts anything. Long-running operations arm it on entry, poll
// OpTimerFired at safe points and unwind with a timeout error themselves,
// then disarm it on exit.

// StartOpTimer arms the deadline timer for one API call. The effective
// timeout is the session override when non-zero, else the engine-wide
// default. An effective timeout of zero leaves the timer inactive with both
// scratch fields zero; that is the explicit no-deadline state, not an error.
func (s *Session) StartOpTimer() {
	timeout := s.timeoutUS
	if timeout == 0 {
		timeout = s.engine.cfg.OperationTimeoutUS
	}
	if timeout == 0 {
		s.opStartUS, s.opTimeoutUS = 0, 0
		return
	}
	s.opStartUS = s.engine.clock()
	s.opTimeoutUS = timeout
	s.engine.optrack.record(s.name)
}

// StopOpTimer disarms the timer. Idempotent.
func (s *Session) StopOpTimer() {
	s.opStartUS, s.opTimeoutUS = 0, 0
}

// OpTimerFired reports whether the armed deadline has passed. An inactive
// timer never fires, and a call taking exactly the timeout has not fired.
// The check is a pure predicate over session state and the clock; it never
// blocks.
func (s *Session) OpTimerFired() bool {
	if s.opTimeoutUS == 0 {
		return false
	}
	return s.engine.clock()-s.opStartUS > s.opTimeoutUS
}
