package engine

import (
	"os"

	"github.com/petradb/petra/internal/errors"
)

// dataHandle is an open table or file handle owned by the instance. Closed
// handles linger in the list as dead entries until the sweep server reclaims
// them.
type dataHandle struct {
	uri  string
	file *os.File
	dead bool
}

// openDataHandle opens a backing file and registers its handle. Refused once
// no more opens are permitted; worker threads hit this check at their safe
// points during shutdown.
func (e *Engine) openDataHandle(s *Session, uri, path string) (*dataHandle, error) {
	if e.NoMoreOpens() {
		return nil, errors.ShuttingDownError("file open")
	}
	if s != nil && s.noDataHandles {
		return nil, errors.InternalErrorf("session %q may not access data handles", s.name)
	}

	e.dhandleMu.Lock()
	defer e.dhandleMu.Unlock()

	for _, dh := range e.dhandles {
		if dh.uri == uri && !dh.dead {
			return dh, nil
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.IOErrorf("failed to open %q: %v", uri, err)
	}
	dh := &dataHandle{uri: uri, file: file}
	e.dhandles = append(e.dhandles, dh)
	return dh, nil
}

// closeDataHandles closes every live data handle. Every close runs; the
// first error is returned.
func (e *Engine) closeDataHandles() error {
	e.dhandleMu.Lock()
	defer e.dhandleMu.Unlock()

	var firstErr error
	for _, dh := range e.dhandles {
		if dh.dead || dh.file == nil {
			continue
		}
		if err := dh.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		dh.file = nil
		dh.dead = true
	}
	e.dhandles = nil
	return firstErr
}

// sweepDeadHandles drops dead entries from the handle list. Called by the
// sweep server.
func (e *Engine) sweepDeadHandles() int {
	e.dhandleMu.Lock()
	defer e.dhandleMu.Unlock()

	kept := e.dhandles[:0]
	swept := 0
	for _, dh := range e.dhandles {
		if dh.dead {
			swept++
			continue
		}
		kept = append(kept, dh)
	}
	e.dhandles = kept
	return swept
}
