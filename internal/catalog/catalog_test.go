package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petradb/petra/internal/errors"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "test.meta"))
	require.NoError(t, err)
	return c
}

func TestCatalogBasicOperations(t *testing.T) {
	c := testCatalog(t)

	require.NoError(t, c.Insert("table:a", "version=1"))
	require.NoError(t, c.Insert("table:b", "version=2"))
	require.Equal(t, 2, c.Len())

	v, err := c.Get("table:a")
	require.NoError(t, err)
	require.Equal(t, "version=1", v)

	_, err = c.Get("table:missing")
	require.True(t, errors.IsError(err, errors.NotFound))

	require.NoError(t, c.Remove("table:a"))
	_, err = c.Get("table:a")
	require.True(t, errors.IsError(err, errors.NotFound))

	err = c.Remove("table:a")
	require.True(t, errors.IsError(err, errors.NotFound))
}

func TestCatalogPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.meta")

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Insert("table:a", "version=1"))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	v, err := c.Get("table:a")
	require.NoError(t, err)
	require.Equal(t, "version=1", v)
}

func TestCatalogCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.meta")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	require.True(t, errors.IsError(err, errors.Corruption))
}

func TestCatalogCloseTwice(t *testing.T) {
	c := testCatalog(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.Insert("table:a", "version=1")
	require.Error(t, err)
}

func TestCursor(t *testing.T) {
	c := testCatalog(t)
	require.NoError(t, c.Insert("table:a", "version=1"))

	t.Run("search hit", func(t *testing.T) {
		cur := c.Cursor()
		defer cur.Close()

		cur.SetKey("table:a")
		require.NoError(t, cur.Search())
		require.Equal(t, "version=1", cur.Value())
	})

	t.Run("search miss", func(t *testing.T) {
		cur := c.Cursor()
		defer cur.Close()

		cur.SetKey("table:missing")
		err := cur.Search()
		require.True(t, errors.IsError(err, errors.NotFound))
	})

	t.Run("remove through cursor", func(t *testing.T) {
		require.NoError(t, c.Insert("table:tmp", "version=1"))
		cur := c.Cursor()
		defer cur.Close()

		cur.SetKey("table:tmp")
		require.NoError(t, cur.Search())
		require.NoError(t, cur.Remove())
		_, err := c.Get("table:tmp")
		require.True(t, errors.IsError(err, errors.NotFound))
	})

	t.Run("closed cursor refuses operations", func(t *testing.T) {
		cur := c.Cursor()
		require.NoError(t, cur.Close())
		require.NoError(t, cur.Close())

		cur.SetKey("table:a")
		require.Error(t, cur.Search())
		require.Error(t, cur.Remove())
	})
}

func TestTracker(t *testing.T) {
	t.Run("commit keeps mutations", func(t *testing.T) {
		c := testCatalog(t)
		tr := NewTracker(c)

		require.NoError(t, tr.Begin())
		require.NoError(t, tr.Insert("table:a", "version=1"))
		require.NoError(t, tr.Commit())

		v, err := c.Get("table:a")
		require.NoError(t, err)
		require.Equal(t, "version=1", v)
	})

	t.Run("abort restores prior state", func(t *testing.T) {
		c := testCatalog(t)
		require.NoError(t, c.Insert("table:keep", "version=1"))

		tr := NewTracker(c)
		require.NoError(t, tr.Begin())
		require.NoError(t, tr.Insert("table:new", "version=1"))
		require.NoError(t, tr.Insert("table:keep", "version=2"))
		require.NoError(t, tr.Remove("table:keep"))
		require.NoError(t, tr.Abort())

		_, err := c.Get("table:new")
		require.True(t, errors.IsError(err, errors.NotFound))
		v, err := c.Get("table:keep")
		require.NoError(t, err)
		require.Equal(t, "version=1", v)
	})

	t.Run("mutations require an active group", func(t *testing.T) {
		c := testCatalog(t)
		tr := NewTracker(c)
		require.Error(t, tr.Insert("table:a", "version=1"))
		require.Error(t, tr.Commit())
		require.Error(t, tr.Abort())
	})

	t.Run("nested begin refused", func(t *testing.T) {
		c := testCatalog(t)
		tr := NewTracker(c)
		require.NoError(t, tr.Begin())
		require.Error(t, tr.Begin())
		require.NoError(t, tr.Commit())
	})

	t.Run("destroy aborts active group", func(t *testing.T) {
		c := testCatalog(t)
		tr := NewTracker(c)
		require.NoError(t, tr.Begin())
		require.NoError(t, tr.Insert("table:a", "version=1"))
		require.NoError(t, tr.Destroy())

		_, err := c.Get("table:a")
		require.True(t, errors.IsError(err, errors.NotFound))

		// Destroy with no active group is a no-op.
		require.NoError(t, tr.Destroy())
	})
}
