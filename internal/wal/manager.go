// Package wal implements the write-ahead log manager. The manager has a
// two-phase life: NewManager builds the in-memory structures only, and Open
// later opens the on-disk segments for writes. Recovery runs between the two
// phases, reading segments directly. Destroy is unconditional and safe to
// call whatever phase the manager reached.
package wal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/petradb/petra/internal/log"
)

// Config holds configuration for the WAL manager.
type Config struct {
	// Enabled controls whether the log accepts writes. The manager is
	// created even when disabled, so the log path is available to
	// diagnostic tooling.
	Enabled bool

	// Directory where WAL segment files are stored.
	Directory string

	// Size of the in-memory buffer.
	BufferSize int

	// Maximum size of a single WAL segment file.
	SegmentSize int64

	// Whether to sync on every commit.
	SyncOnCommit bool
}

// DefaultConfig returns a default WAL configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Directory:    "wal",
		BufferSize:   1024 * 1024,
		SegmentSize:  16 * 1024 * 1024, // 16MB segments
		SyncOnCommit: true,
	}
}

// Manager manages the write-ahead log.
type Manager struct {
	config *Config
	logger log.Logger

	currentLSN atomic.Uint64

	// Lifecycle state. opened flips when Open succeeds; recoverDone flips
	// when Recover completes. Both are read during close to decide whether
	// the final checkpoint record is written.
	opened      atomic.Bool
	recoverDone atomic.Bool
	destroyed   atomic.Bool

	mu      sync.Mutex
	flushMu sync.Mutex
	buffer  bytes.Buffer

	currentSegment     *os.File
	currentSegmentNum  uint64
	currentSegmentSize int64
}

// NewManager creates the WAL manager's in-memory structures. No files are
// opened and no directories are created; that happens in Open.
func NewManager(config *Config, logger log.Logger) (*Manager, error) {
	if config.BufferSize < 1 {
		return nil, fmt.Errorf("WAL buffer size must be positive")
	}
	return &Manager{
		config: config,
		logger: logger.With("subsystem", "wal"),
	}, nil
}

// Enabled reports whether the log accepts writes.
func (m *Manager) Enabled() bool {
	return m.config.Enabled
}

// RecoverDone reports whether recovery completed.
func (m *Manager) RecoverDone() bool {
	return m.recoverDone.Load()
}

// Open opens the log for writes. Must be called after recovery and before
// any operation that can commit.
func (m *Manager) Open() error {
	if !m.config.Enabled {
		return nil
	}

	if err := os.MkdirAll(m.config.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create WAL directory: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Continue in the newest existing segment, if any.
	segments, err := m.segmentNumbers()
	if err != nil {
		return err
	}
	if len(segments) > 0 {
		m.currentSegmentNum = segments[len(segments)-1]
	} else {
		m.currentSegmentNum = 1
	}

	if err := m.openSegmentLocked(); err != nil {
		return err
	}
	m.opened.Store(true)
	m.logger.Debug("log opened for writes", "segment", m.currentSegmentNum)
	return nil
}

// NextLSN allocates the next LSN.
func (m *Manager) NextLSN() LSN {
	return LSN(m.currentLSN.Add(1))
}

// CurrentLSN returns the last allocated LSN.
func (m *Manager) CurrentLSN() LSN {
	return LSN(m.currentLSN.Load())
}

// Append appends a record to the log.
func (m *Manager) Append(rec *Record) error {
	if !m.config.Enabled {
		return nil
	}
	if !m.opened.Load() {
		return fmt.Errorf("log is not open for writes")
	}

	m.mu.Lock()
	if err := rec.Serialize(&m.buffer); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to buffer record: %w", err)
	}
	needsFlush := m.buffer.Len() >= m.config.BufferSize ||
		(m.config.SyncOnCommit && rec.Type == RecordTypeCommitTxn)
	m.mu.Unlock()

	if needsFlush {
		return m.Flush()
	}
	return nil
}

// LogCheckpoint appends a checkpoint record and forces it to disk.
func (m *Manager) LogCheckpoint() (LSN, error) {
	lsn := m.NextLSN()
	rec := &Record{LSN: lsn, Type: RecordTypeCheckpoint}
	if err := m.Append(rec); err != nil {
		return InvalidLSN, err
	}
	return lsn, m.Flush()
}

// LogCheckpointStop writes the final checkpoint-completion record during
// close, after all data handles are closed.
func (m *Manager) LogCheckpointStop() error {
	if !m.config.Enabled || !m.opened.Load() {
		return nil
	}
	rec := &Record{LSN: m.NextLSN(), Type: RecordTypeCheckpointStop}
	if err := m.Append(rec); err != nil {
		return err
	}
	return m.Flush()
}

// Flush writes buffered records to the current segment.
func (m *Manager) Flush() error {
	if !m.config.Enabled || !m.opened.Load() {
		return nil
	}

	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	if m.buffer.Len() == 0 {
		m.mu.Unlock()
		return nil
	}
	data := make([]byte, m.buffer.Len())
	copy(data, m.buffer.Bytes())
	m.buffer.Reset()

	if err := m.writeToSegmentLocked(data); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to write to segment: %w", err)
	}
	seg := m.currentSegment
	m.mu.Unlock()

	if m.config.SyncOnCommit {
		if err := seg.Sync(); err != nil {
			return fmt.Errorf("failed to sync segment: %w", err)
		}
	}
	return nil
}

// Destroy tears down the log manager. It runs unconditionally during close,
// even when logging was never enabled, and is safe to call twice.
func (m *Manager) Destroy() error {
	if !m.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	var firstErr error
	if m.opened.Load() {
		if err := m.Flush(); err != nil {
			firstErr = err
		}
	}
	m.opened.Store(false)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentSegment != nil {
		if err := m.currentSegment.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close segment: %w", err)
		}
		m.currentSegment = nil
	}
	return firstErr
}

// segmentNumbers lists existing segment numbers in ascending order.
func (m *Manager) segmentNumbers() ([]uint64, error) {
	pattern := filepath.Join(m.config.Directory, "*.wal")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list WAL files: %w", err)
	}

	nums := make([]uint64, 0, len(files))
	for _, file := range files {
		var segNum uint64
		if _, err := fmt.Sscanf(filepath.Base(file), "%016x.wal", &segNum); err == nil {
			nums = append(nums, segNum)
		}
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums, nil
}

func (m *Manager) openSegmentLocked() error {
	path := m.segmentPath(m.currentSegmentNum)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open segment %d: %w", m.currentSegmentNum, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat segment: %w", err)
	}
	m.currentSegment = file
	m.currentSegmentSize = stat.Size()
	return nil
}

func (m *Manager) writeToSegmentLocked(data []byte) error {
	if m.currentSegmentSize+int64(len(data)) > m.config.SegmentSize {
		if err := m.rotateSegmentLocked(); err != nil {
			return err
		}
	}

	n, err := m.currentSegment.Write(data)
	if err != nil {
		return err
	}
	m.currentSegmentSize += int64(n)
	return nil
}

func (m *Manager) rotateSegmentLocked() error {
	if m.currentSegment != nil {
		if err := m.currentSegment.Close(); err != nil {
			return fmt.Errorf("failed to close current segment: %w", err)
		}
	}
	m.currentSegmentNum++
	m.currentSegmentSize = 0
	return m.openSegmentLocked()
}

func (m *Manager) segmentPath(segNum uint64) string {
	return filepath.Join(m.config.Directory, fmt.Sprintf("%016x.wal", segNum))
}

// scanSegment reads every record in one segment file, stopping at a clean
// EOF or a truncated trailing record.
func (m *Manager) scanSegment(path string, apply func(*Record) error) (LSN, error) {
	file, err := os.Open(path)
	if err != nil {
		return InvalidLSN, fmt.Errorf("failed to open segment: %w", err)
	}
	defer file.Close()

	var lastLSN LSN
	for {
		rec, err := DeserializeRecord(file)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// Partial record at end of file is expected after a crash.
			break
		}
		if err != nil {
			return lastLSN, err
		}
		if rec.LSN > lastLSN {
			lastLSN = rec.LSN
		}
		if apply != nil {
			if err := apply(rec); err != nil {
				return lastLSN, err
			}
		}
	}
	return lastLSN, nil
}
