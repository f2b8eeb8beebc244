package engine

// The shutdown sequencer. Unlike startup, close is best-effort and never
// fail-fast: every step runs even when an earlier step failed, the first
// error seen is remembered and returned once teardown is complete. The step
// order is a fixed, reviewed script over the handle's resource slots; it is
// deliberately not derived from a dependency graph at runtime.

// Close tears the instance down. Every per-subsystem destroy is a safe
// no-op when the handle is already nil, so Close tolerates both a partially
// failed open and being called a second time.
func (e *Engine) Close() error {
	var firstErr error
	tret := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	session := e.defaultSession.Load()

	// Shut down the subsystems, ensuring workers see the state change
	// before anything is torn out from under them. The flag store is an
	// atomic read-modify-write; workers polling the flag observe it.
	e.flags.set(flagClosing)

	// The default session is used to access data handles during close.
	session.noDataHandles = false

	// Stop service threads. These can touch data handles and eviction, so
	// they stop before the eviction server, and all servers stop before
	// data handles are closed.
	if e.capacity != nil {
		tret(e.capacity.Destroy())
		e.capacity = nil
	}
	if e.ckptServer != nil {
		tret(e.ckptServer.Destroy())
		e.ckptServer = nil
	}
	if e.statLog != nil {
		tret(e.statLog.Destroy())
		e.statLog = nil
	}
	if e.sweep != nil {
		tret(e.sweep.Destroy())
		e.sweep = nil
	}

	// The eviction server is shut down last.
	if e.evict != nil {
		tret(e.evict.Destroy())
		e.evict = nil
	}
	e.servers = nil

	// There should be no more file opens after this point.
	e.flags.set(flagClosingNoMoreOpens)

	tret(e.closeDataHandles())

	if e.metaTrack != nil {
		tret(e.metaTrack.Destroy())
		e.metaTrack = nil
	}
	if e.meta != nil {
		tret(e.meta.Close())
		e.meta = nil
	}

	// Tell logging a checkpoint has completed, then shut the log manager
	// down. The destroy call is outside the conditional: the log path is
	// allocated even when logging never ran, so diagnostic tooling can use
	// it.
	if e.logMgr != nil {
		if firstErr == nil && e.logMgr.Enabled() && e.logMgr.RecoverDone() {
			tret(e.logMgr.LogCheckpointStop())
		}
		tret(e.logMgr.Destroy())
		e.logMgr = nil
	}

	// Release registered pluggable components; each removal is
	// independent.
	tret(e.collators.removeAll())
	tret(e.compressors.removeAll())
	tret(e.dataSources.removeAll())
	tret(e.encryptors.removeAll())
	tret(e.extractors.removeAll())

	// Disconnect from the shared cache pool before cache destroy; the pool
	// holds a back-reference into this instance's cache.
	if e.cachePool != nil && e.blockCache != nil {
		e.cachePool.Disconnect(e.blockCache)
		e.cachePool = nil
	}

	if e.blockCache != nil {
		tret(e.blockCache.Destroy())
		e.blockCache = nil
	}

	if e.txnGlobal != nil {
		e.txnGlobal.Destroy()
		e.txnGlobal = nil
	}

	// Close the lock file, opening the instance up to other processes.
	if e.lockFile != nil {
		tret(e.lockFile.Close())
		tret(e.fs.Remove(e.cfg.GetLockPath()))
		e.lockFile = nil
	}

	// Operation tracking flushes into the trace file, so it tears down
	// first.
	tret(e.optrackTeardown())
	if e.traceFile != nil {
		tret(e.traceFile.Close())
		e.traceFile = nil
	}

	e.releaseBackup()

	// Close any file handles left open.
	e.openFileMu.Lock()
	for _, f := range e.openFiles {
		tret(f.Close())
	}
	e.openFiles = nil
	e.openFileMu.Unlock()

	// Close the internal default session and switch back to the placeholder
	// so any remaining diagnostics have a valid context.
	if session != &e.dummySession {
		tret(e.closeInternalSession(session))
		e.defaultSession.Store(&e.dummySession)
	}

	// Session scratch persists past session close; discard it now, unless
	// configured to leak memory for a fast exit. No other thread is using
	// the sessions: the service threads are down and new opens refused.
	if !e.flags.has(flagLeakMemory) {
		e.sessionMu.Lock()
		for _, s := range e.sessions {
			if s != nil {
				s.releaseSessionScratch()
			}
		}
		e.sessionMu.Unlock()
	}

	// Terminate the pluggable file-system backend.
	if e.fs != nil {
		tret(e.fs.Terminate())
		e.fs = nil
	}

	// Unload extensions, first calling any terminate entry point.
	tret(e.unloadExtensions())

	// Release the handle's remaining state.
	e.sessions = nil

	if firstErr != nil {
		e.logger.Error("engine close completed with error", "error", firstErr)
	} else {
		e.logger.Info("engine closed")
	}
	return firstErr
}
