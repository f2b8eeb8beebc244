package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petradb/petra/internal/catalog"
	"github.com/petradb/petra/internal/config"
	"github.com/petradb/petra/internal/log"
)

// testConfig returns a quiet configuration rooted in a test temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Checkpoint.Enabled = false
	cfg.Statistics.Enabled = false
	cfg.Sweep.Interval = "1h"
	return cfg
}

// openTestEngine opens a full engine instance for the test's lifetime.
func openTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// newBareEngine builds a handle with only the pieces the history check and
// session machinery need: catalog, session table, default session. No
// service threads, no lock file.
func newBareEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()

	e := &Engine{
		cfg:         cfg,
		logger:      log.Discard(),
		clock:       monotonicClock,
		fs:          osFileSystem{},
		optrack:     newOpTracker(),
		collators:   newComponentRegistry("collator"),
		compressors: newComponentRegistry("compressor"),
		dataSources: newComponentRegistry("data source"),
		encryptors:  newComponentRegistry("encryptor"),
		extractors:  newComponentRegistry("extractor"),
	}
	e.dummySession = Session{engine: e, name: "dummy", slot: -1}
	e.defaultSession.Store(&e.dummySession)

	meta, err := catalog.Open(cfg.GetMetadataPath())
	require.NoError(t, err)
	e.meta = meta

	e.sessions = make([]*Session, cfg.MaxSessions)
	s, err := e.openInternalSession("connection")
	require.NoError(t, err)
	e.defaultSession.Store(s)

	return e
}

// activeSessions counts checked-out sessions.
func activeSessions(e *Engine) int {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	n := 0
	for _, s := range e.sessions {
		if s != nil && s.active {
			n++
		}
	}
	return n
}
