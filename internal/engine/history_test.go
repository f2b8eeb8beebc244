package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petradb/petra/internal/errors"
	"github.com/petradb/petra/internal/testutil"
)

func TestHistoryExists(t *testing.T) {
	t.Run("absent from catalog", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)

		exists, err := e.hsExists()
		require.NoError(t, err)
		require.False(t, exists)

		// The check is read-only when the table is absent.
		require.Equal(t, 0, e.meta.Len())
	})

	t.Run("referenced but file missing", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)
		require.NoError(t, e.meta.Insert(HistoryURI, "version=1"))

		_, err := e.hsExists()
		require.Error(t, err)
		require.True(t, errors.IsError(err, errors.TrySalvage))

		// Without salvage the catalog entry is left alone.
		_, gerr := e.meta.Get(HistoryURI)
		require.NoError(t, gerr)
	})

	t.Run("referenced but file missing, salvage", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)
		e.flags.set(flagSalvage)
		require.NoError(t, e.meta.Insert(HistoryURI, "version=1"))

		exists, err := e.hsExists()
		require.NoError(t, err)
		require.False(t, exists)

		// Salvage drops the dangling entry so the table is recreated later.
		_, gerr := e.meta.Get(HistoryURI)
		require.True(t, errors.IsError(gerr, errors.NotFound))
	})

	t.Run("file corrupt", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)
		require.NoError(t, e.meta.Insert(HistoryURI, "version=1"))
		testutil.WriteFile(t, cfg.DataDir, historyFileName, []byte("garbage!"))

		_, err := e.hsExists()
		require.Error(t, err)
		require.True(t, errors.IsError(err, errors.Corruption))
	})

	t.Run("file corrupt, salvage", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)
		e.flags.set(flagSalvage)
		require.NoError(t, e.meta.Insert(HistoryURI, "version=1"))
		testutil.WriteFile(t, cfg.DataDir, historyFileName, []byte("garbage!"))

		exists, err := e.hsExists()
		require.NoError(t, err)
		require.True(t, exists)

		// The file was rebuilt with a valid header.
		require.NoError(t, e.hsConfig())
	})

	t.Run("file valid", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)
		require.NoError(t, e.meta.Insert(HistoryURI, "version=1"))
		testutil.WriteFile(t, cfg.DataDir, historyFileName, historyMagic)

		exists, err := e.hsExists()
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("check session is released on every path", func(t *testing.T) {
		cfg := testConfig(t)
		e := newBareEngine(t, cfg)
		before := activeSessions(e)

		_, err := e.hsExists()
		require.NoError(t, err)
		require.Equal(t, before, activeSessions(e))

		// Error path releases the session too.
		require.NoError(t, e.meta.Insert(HistoryURI, "version=1"))
		_, err = e.hsExists()
		require.Error(t, err)
		require.Equal(t, before, activeSessions(e))
	})
}

func TestHistoryCleanupLegacy(t *testing.T) {
	cfg := testConfig(t)
	e := newBareEngine(t, cfg)

	lasPath, _ := e.uriPath(legacyLookasideURI)
	require.NoError(t, e.meta.Insert(legacyLookasideURI, "version=0"))
	testutil.WriteFile(t, cfg.DataDir, legacyLookasideFile, []byte("old"))

	require.NoError(t, e.hsCleanupLegacy())

	_, err := e.meta.Get(legacyLookasideURI)
	require.True(t, errors.IsError(err, errors.NotFound))
	_, err = os.Stat(lasPath)
	require.True(t, os.IsNotExist(err))

	// Nothing to clean up the second time.
	require.NoError(t, e.hsCleanupLegacy())
}
