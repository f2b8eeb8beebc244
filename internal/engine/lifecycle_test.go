package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petradb/petra/internal/config"
	"github.com/petradb/petra/internal/errors"
	"github.com/petradb/petra/internal/log"
	"github.com/petradb/petra/internal/testutil"
)

func TestOpenClose(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)

	// A fresh instance has no history table until open creates one.
	require.False(t, e.hsExisted)
	_, err = e.meta.Get(HistoryURI)
	require.NoError(t, err)

	// The backing file carries a valid header.
	require.NoError(t, e.hsConfig())

	// The lock file pins the instance.
	_, err = os.Stat(cfg.GetLockPath())
	require.NoError(t, err)

	require.NoError(t, e.Close())

	// Close releases the lock.
	_, err = os.Stat(cfg.GetLockPath())
	require.True(t, os.IsNotExist(err))
}

func TestCloseTwice(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestReopenFindsHistoryTable(t *testing.T) {
	cfg := testConfig(t)

	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.False(t, e.hsExisted)
	require.NoError(t, e.Close())

	// Mark the file so a rewrite would be detectable.
	hsPath := filepath.Join(cfg.DataDir, historyFileName)
	f, err := os.OpenFile(hsPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("marker"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	e, err = Open(cfg, log.Discard())
	require.NoError(t, err)
	require.True(t, e.hsExisted)
	require.NoError(t, e.Close())

	// The pre-existing file was reused, not recreated.
	data, err := os.ReadFile(hsPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "marker")
}

func TestOpenFailsOnCorruptHistory(t *testing.T) {
	cfg := testConfig(t)

	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	testutil.WriteFile(t, cfg.DataDir, historyFileName, []byte("scribble"))

	_, err = Open(cfg, log.Discard())
	require.Error(t, err)
	require.True(t, errors.IsError(err, errors.Corruption))

	// The failed open released the lock, so a salvage open can proceed.
	cfg.Salvage = true
	e, err = Open(cfg, log.Discard())
	require.NoError(t, err)
	require.True(t, e.hsExisted)
	require.NoError(t, e.hsConfig())
	require.NoError(t, e.Close())
}

func TestOpenFailureCleansUp(t *testing.T) {
	cfg := testConfig(t)

	// A file where the WAL directory belongs forces the log-open step to
	// fail, well into startup.
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.GetWALDirectory(), []byte("x"), 0o644))

	_, err := Open(cfg, log.Discard())
	require.Error(t, err)

	// Partial teardown ran: the lock is released.
	_, serr := os.Stat(cfg.GetLockPath())
	require.True(t, os.IsNotExist(serr))

	// With the obstruction removed the same directory opens cleanly.
	require.NoError(t, os.Remove(cfg.GetWALDirectory()))
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestOpenRefusedWhileLocked(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	defer e.Close()

	_, err = Open(cfg, log.Discard())
	require.Error(t, err)
	require.True(t, errors.IsError(err, errors.IOError))
}

func TestSessionLimit(t *testing.T) {
	e := openTestEngine(t, func(cfg *config.Config) {
		cfg.MaxSessions = 3
	})

	// Slot 0 holds the internal default session.
	s1, err := e.OpenSession("a")
	require.NoError(t, err)
	s2, err := e.OpenSession("b")
	require.NoError(t, err)

	_, err = e.OpenSession("c")
	require.True(t, errors.IsError(err, errors.SessionLimit))

	// Closing one frees a slot for reuse.
	require.NoError(t, e.CloseSession(s1))
	s3, err := e.OpenSession("c")
	require.NoError(t, err)
	require.NoError(t, e.CloseSession(s2))
	require.NoError(t, e.CloseSession(s3))
}

func TestOpenSessionRefusedDuringClose(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.OpenSession("late")
	require.True(t, errors.IsError(err, errors.ShuttingDown))
}

func TestDefaultSessionSwap(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)

	// While open, the default session is a real table entry.
	s := e.DefaultSession()
	require.NotSame(t, &e.dummySession, s)
	require.GreaterOrEqual(t, s.slot, 0)

	require.NoError(t, e.Close())

	// After close it reverts to the placeholder.
	require.Same(t, &e.dummySession, e.DefaultSession())
}

func TestDataHandlesRefusedAfterClose(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.openDataHandle(e.DefaultSession(), "table:t", filepath.Join(cfg.DataDir, "t.pdb"))
	require.True(t, errors.IsError(err, errors.ShuttingDown))
}

func TestCloseWithLeakMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.LeakMemoryOnClose = true
	e, err := Open(cfg, log.Discard())
	require.NoError(t, err)

	s, err := e.OpenSession("app")
	require.NoError(t, err)
	require.NoError(t, e.CloseSession(s))

	// Scratch survives close when leaking is configured.
	require.NoError(t, e.Close())
	require.NotNil(t, s.cursorCache)
}

func TestFlagsAreMonotonic(t *testing.T) {
	var f flagSet
	require.False(t, f.has(flagClosing))

	f.set(flagClosing)
	require.True(t, f.has(flagClosing))
	require.False(t, f.has(flagClosingNoMoreOpens))

	f.set(flagClosingNoMoreOpens)
	require.True(t, f.has(flagClosing))
	require.True(t, f.has(flagClosingNoMoreOpens))
}
