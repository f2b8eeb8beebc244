package catalog

import (
	"github.com/petradb/petra/internal/errors"
)

// Cursor provides positioned access to catalog entries. A cursor must be
// closed when no longer needed; closing twice is a no-op.
type Cursor struct {
	cat    *Catalog
	key    string
	value  string
	valid  bool
	closed bool
}

// Cursor returns a new cursor over the catalog.
func (c *Catalog) Cursor() *Cursor {
	return &Cursor{cat: c}
}

// SetKey positions the cursor at key. The position is not validated until
// Search.
func (cur *Cursor) SetKey(key string) {
	cur.key = key
	cur.valid = false
}

// Search looks up the current key. A miss returns a not-found error and
// leaves the cursor unpositioned.
func (cur *Cursor) Search() error {
	if cur.closed {
		return errors.InternalErrorf("cursor is closed")
	}
	value, err := cur.cat.Get(cur.key)
	if err != nil {
		return err
	}
	cur.value = value
	cur.valid = true
	return nil
}

// Value returns the value at the current position. Only valid after a
// successful Search.
func (cur *Cursor) Value() string {
	return cur.value
}

// Remove deletes the entry at the current key.
func (cur *Cursor) Remove() error {
	if cur.closed {
		return errors.InternalErrorf("cursor is closed")
	}
	cur.valid = false
	return cur.cat.Remove(cur.key)
}

// Close releases the cursor.
func (cur *Cursor) Close() error {
	cur.closed = true
	cur.valid = false
	return nil
}
