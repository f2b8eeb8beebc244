package wal

import (
	"fmt"
)

// Recover replays the existing log segments. The apply callback receives
// every replayed record; replay of older logs can recreate metadata,
// including the history table's catalog entry, which is why the caller must
// compute history-table existence from on-disk state before calling Recover.
//
// historyExists is recorded so later recovery stages can skip
// version-history reconciliation for instances that never had a history
// table.
func (m *Manager) Recover(historyExists bool, apply func(*Record) error) error {
	defer m.recoverDone.Store(true)

	if !m.config.Enabled {
		return nil
	}

	segments, err := m.segmentNumbers()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		m.logger.Debug("no log segments, skipping recovery")
		return nil
	}

	var lastLSN LSN
	replayed := 0
	for _, segNum := range segments {
		segLSN, err := m.scanSegment(m.segmentPath(segNum), func(rec *Record) error {
			replayed++
			if apply != nil {
				return apply(rec)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("recovery failed in segment %d: %w", segNum, err)
		}
		if segLSN > lastLSN {
			lastLSN = segLSN
		}
	}

	// New records continue after everything replayed.
	m.currentLSN.Store(uint64(lastLSN))

	m.logger.Info("recovery complete",
		"records", replayed, "last_lsn", uint64(lastLSN), "history_table", historyExists)
	return nil
}
