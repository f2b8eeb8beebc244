package engine

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/petradb/petra/internal/errors"
)

// The history table is a hidden table holding multi-version update history.
// It is referenced from the metadata catalog under a well-known URI and
// backed by a single file in the data directory.
const (
	HistoryURI      = "table:history"
	historyFileName = "history.pdb"

	// Pre-history-table releases kept a lookaside table instead; its
	// remnants are cleaned up once during open.
	legacyLookasideURI  = "table:lookaside"
	legacyLookasideFile = "lookaside.pdb"
)

var historyMagic = []byte("PETRAHS\x01")

func (e *Engine) historyFilePath() string {
	return filepath.Join(e.cfg.DataDir, historyFileName)
}

func (e *Engine) uriPath(uri string) (string, bool) {
	switch uri {
	case HistoryURI:
		return e.historyFilePath(), true
	case legacyLookasideURI:
		return filepath.Join(e.cfg.DataDir, legacyLookasideFile), true
	}
	return "", false
}

// hsExists decides whether the history table is present: it looks for the
// history URI in the metadata catalog and, when referenced, for the backing
// file on disk. Running in salvage mode, a missing or corrupt backing file
// is repaired here. The check runs in a disposable internal session so the
// caller's context is not contaminated with the temporary cursor; both the
// session and the cursor are released on every exit path.
//
// The result must be computed from on-disk state before log replay: replay
// of older logs can itself create the history table's catalog entry.
func (e *Engine) hsExists() (exists bool, err error) {
	s, serr := e.openInternalSession("hs-exists")
	if serr != nil {
		return false, serr
	}
	defer func() {
		if cerr := e.closeInternalSession(s); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cur := e.meta.Cursor()
	defer func() {
		if cerr := cur.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cur.SetKey(HistoryURI)
	serr = cur.Search()
	if errors.IsError(serr, errors.NotFound) {
		// Not in the catalog: the instance predates the history table.
		return false, nil
	}
	if serr != nil {
		return false, serr
	}

	onDisk, ferr := e.fs.Exists(e.historyFilePath())
	if ferr != nil {
		return false, errors.IOErrorf("failed to check %s: %v", historyFileName, ferr)
	}
	if !onDisk {
		if e.SalvageMode() {
			// Remove the catalog entry and pretend the table never
			// existed; it will be recreated empty later in startup.
			if rerr := cur.Remove(); rerr != nil {
				return false, rerr
			}
			e.logger.Warn("history table file missing, removed from catalog for salvage")
			return false, nil
		}
		return false, errors.TrySalvageError(historyFileName)
	}

	// The file is there; configuring it detects corruption.
	if cfgErr := e.hsConfig(); cfgErr != nil {
		if !e.SalvageMode() {
			return false, cfgErr
		}
		if serr := e.salvage(HistoryURI); serr != nil {
			return false, serr
		}
	}
	return true, nil
}

// hsConfig validates the history table's backing file.
func (e *Engine) hsConfig() error {
	path := e.historyFilePath()
	f, err := os.Open(path)
	if err != nil {
		return errors.IOErrorf("failed to open %s: %v", historyFileName, err)
	}
	defer f.Close()

	header := make([]byte, len(historyMagic))
	if _, err := f.Read(header); err != nil {
		return errors.CorruptionError(path, err)
	}
	if !bytes.Equal(header, historyMagic) {
		return errors.CorruptionError(path, errors.Newf(errors.Corruption, "bad magic"))
	}
	return nil
}

// salvage rebuilds a table's backing file best-effort. Data that cannot be
// recovered is discarded.
func (e *Engine) salvage(uri string) error {
	path, ok := e.uriPath(uri)
	if !ok {
		return errors.InternalErrorf("cannot salvage unknown uri %q", uri)
	}
	e.logger.Warn("salvaging table", "uri", uri)
	if err := os.WriteFile(path, historyMagic, 0o644); err != nil {
		return errors.IOErrorf("salvage of %q failed: %v", uri, err)
	}
	return nil
}

// hsCreate creates the history table. It only actually creates anything on
// a clean upgrade or a fresh instance; with a validated pre-existing table
// it just opens the handle.
func (e *Engine) hsCreate() error {
	path := e.historyFilePath()

	if _, err := e.meta.Get(HistoryURI); err == nil {
		_, err := e.openDataHandle(e.DefaultSession(), HistoryURI, path)
		return err
	}

	// Group the file creation and the catalog entry so a failure leaves no
	// half-created table behind.
	if err := e.metaTrack.Begin(); err != nil {
		return err
	}
	if err := os.WriteFile(path, historyMagic, 0o644); err != nil {
		_ = e.metaTrack.Abort()
		return errors.IOErrorf("failed to create %s: %v", historyFileName, err)
	}
	if err := e.metaTrack.Insert(HistoryURI, "version=1"); err != nil {
		_ = e.metaTrack.Abort()
		return err
	}
	if err := e.metaTrack.Commit(); err != nil {
		return err
	}

	e.logger.Info("created history table")
	_, err := e.openDataHandle(e.DefaultSession(), HistoryURI, path)
	return err
}

// hsCleanupLegacy drops the obsolete lookaside table left behind by old
// instances.
func (e *Engine) hsCleanupLegacy() error {
	if _, err := e.meta.Get(legacyLookasideURI); err != nil {
		return nil
	}
	if err := e.meta.Remove(legacyLookasideURI); err != nil {
		return err
	}
	path, _ := e.uriPath(legacyLookasideURI)
	if err := e.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.IOErrorf("failed to remove legacy lookaside file: %v", err)
	}
	e.logger.Info("removed legacy lookaside table")
	return nil
}

// historyEvictHook persists version history for blocks leaving the cache.
// Installed once the history table exists; a no-op once close has begun.
func (e *Engine) historyEvictHook(key string, data []byte) {
	if e.Closing() {
		return
	}

	e.dhandleMu.Lock()
	defer e.dhandleMu.Unlock()

	for _, dh := range e.dhandles {
		if dh.uri != HistoryURI || dh.dead || dh.file == nil {
			continue
		}
		if _, err := dh.file.Seek(0, io.SeekEnd); err != nil {
			return
		}
		var hdr [4]byte
		hdr[0] = byte(len(key) >> 8)
		hdr[1] = byte(len(key))
		hdr[2] = byte(len(data) >> 8)
		hdr[3] = byte(len(data))
		dh.file.Write(hdr[:])
		dh.file.Write([]byte(key))
		dh.file.Write(data)
		return
	}
}
