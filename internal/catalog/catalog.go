// Package catalog manages the engine's metadata: a key-value map of table
// URIs to their configuration, persisted as a single JSON file in the data
// directory. Lookups during open use the cursor API; grouped mutations go
// through the Tracker.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/petradb/petra/internal/errors"
)

// Catalog is the persistent metadata store.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
	closed  bool
}

// Open loads the catalog from path, creating an empty catalog if the file
// does not exist yet.
func Open(path string) (*Catalog, error) {
	c := &Catalog{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, errors.CorruptionError(path, err)
	}
	return c, nil
}

// Insert adds or replaces an entry.
func (c *Catalog) Insert(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.InternalErrorf("catalog is closed")
	}
	c.entries[key] = value
	return c.syncLocked()
}

// Get returns the value for key, or a not-found error.
func (c *Catalog) Get(key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.entries[key]
	if !ok {
		return "", errors.NotFoundError(key)
	}
	return value, nil
}

// Remove deletes an entry. Removing a missing key is a not-found error.
func (c *Catalog) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return errors.NotFoundError(key)
	}
	delete(c.entries, key)
	return c.syncLocked()
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sync persists the catalog to disk.
func (c *Catalog) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked()
}

func (c *Catalog) syncLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot truncate the catalog.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to rename catalog: %w", err)
	}
	return nil
}

// Close persists and closes the catalog. Closing twice is a no-op.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.syncLocked()
}
