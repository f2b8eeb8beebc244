package engine

import (
	"github.com/google/uuid"

	"github.com/petradb/petra/internal/catalog"
	"github.com/petradb/petra/internal/errors"
)

// Session is one logical caller's execution context. Sessions are allocated
// from the engine's fixed-size table, checked out by a caller and returned
// on close. Scratch allocations survive session close and are reclaimed when
// the engine itself closes.
type Session struct {
	id     uuid.UUID
	name   string
	engine *Engine

	// slot is the index in the session table, or -1 for the static
	// placeholder session.
	slot   int
	active bool

	// noDataHandles refuses data-handle access from this session. Cleared
	// on the default session during close, which must traverse handles.
	noDataHandles bool

	// Per-session operation deadline override in microseconds. Zero falls
	// back to the engine-wide default.
	timeoutUS int64

	// Timer scratch fields, live only between StartOpTimer and StopOpTimer.
	// Either both zero (inactive) or both non-zero (armed).
	opStartUS   int64
	opTimeoutUS int64

	// Scratch allocations that persist past session close.
	cursorCache map[string]*catalog.Cursor
	handleIndex map[string]int
	stash       [][]byte
	hazards     []string
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// SetOperationTimeout overrides the engine-wide operation deadline for this
// session, in microseconds. Zero restores the engine default.
func (s *Session) SetOperationTimeout(us int64) {
	s.timeoutUS = us
}

// OpenSession checks a session out of the table.
func (e *Engine) OpenSession(name string) (*Session, error) {
	if e.Closing() {
		return nil, errors.ShuttingDownError("session open")
	}
	return e.openInternalSession(name)
}

// CloseSession returns a session to the table. Its scratch allocations are
// kept until the engine closes.
func (e *Engine) CloseSession(s *Session) error {
	return e.closeInternalSession(s)
}

// openInternalSession allocates a session slot without checking the closing
// flag; close-time teardown needs sessions of its own.
func (e *Engine) openInternalSession(name string) (*Session, error) {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()

	for i, s := range e.sessions {
		if s != nil && s.active {
			continue
		}
		if s == nil {
			s = &Session{engine: e, slot: i}
			e.sessions[i] = s
		}
		s.id = uuid.New()
		s.name = name
		s.active = true
		s.noDataHandles = false
		s.timeoutUS = 0
		s.opStartUS, s.opTimeoutUS = 0, 0
		if s.cursorCache == nil {
			s.cursorCache = make(map[string]*catalog.Cursor)
		}
		if s.handleIndex == nil {
			s.handleIndex = make(map[string]int)
		}
		return s, nil
	}
	return nil, errors.Newf(errors.SessionLimit,
		"session table is full (%d sessions)", len(e.sessions))
}

func (e *Engine) closeInternalSession(s *Session) error {
	if s == nil || s.slot < 0 {
		return nil
	}

	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()

	if !s.active {
		return nil
	}
	s.active = false
	s.opStartUS, s.opTimeoutUS = 0, 0

	// Close cached cursors; the maps themselves persist until engine close.
	var firstErr error
	for key, cur := range s.cursorCache {
		if err := cur.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.cursorCache, key)
	}
	return firstErr
}

// releaseSessionScratch discards the allocations that outlive session close.
// Only the orchestrating close thread calls this, after every service thread
// has stopped.
func (s *Session) releaseSessionScratch() {
	s.cursorCache = nil
	s.handleIndex = nil
	s.stash = nil
	s.hazards = nil
}
