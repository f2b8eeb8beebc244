package engine

import (
	"time"

	"github.com/petradb/petra/internal/cache"
	"github.com/petradb/petra/internal/catalog"
	"github.com/petradb/petra/internal/wal"
)

// StartWorkers runs the second phase of startup: recovery, the history
// table, and the service threads, in strict order. The handle must already
// be allocated and published. Like open, the sequence is fail-fast; the
// caller is expected to run Close over whatever partial state remains.
func (e *Engine) StartWorkers() error {
	cfg := e.cfg

	// Statistics first, so later optional services can query whether
	// statistics are enabled.
	if cfg.Statistics.Enabled {
		e.statLog = newStatLogServer(e, cfg.StatisticsInterval())
		e.statLog.start()
		e.servers = append(e.servers, e.statLog)
	}

	// The log manager's in-memory structures; not yet accepting writes.
	lm, err := wal.NewManager(e.walConfig(), e.logger)
	if err != nil {
		return err
	}
	e.logMgr = lm

	// History-table existence must come from on-disk state before replay;
	// replay can create the catalog entry itself.
	hsExists, err := e.hsExists()
	if err != nil {
		return err
	}
	e.hsExisted = hsExists

	if err := e.logMgr.Recover(hsExists, e.applyLogRecord); err != nil {
		return err
	}

	// Metadata tracking, required before creating tables.
	e.metaTrack = catalog.NewTracker(e.meta)

	if err := e.hsCleanupLegacy(); err != nil {
		return err
	}

	if err := e.hsCreate(); err != nil {
		return err
	}

	// Open the log for writes: after recovery, before anything can commit,
	// since commit can block on log availability.
	if err := e.logMgr.Open(); err != nil {
		return err
	}

	// Eviction starts only now: evicting a page can write version history,
	// so the history table must exist first.
	e.blockCache.SetHistoryHook(e.historyEvictHook)
	e.evict = cache.NewEvictionServer(e.blockCache, time.Second, e.logger)
	e.evict.Start()
	e.servers = append(e.servers, e.evict)

	e.sweep = newSweepServer(e, cfg.SweepInterval())
	e.sweep.start()
	e.servers = append(e.servers, e.sweep)

	if cfg.Capacity.Enabled {
		e.capacity = newCapacityServer(e, cfg.Capacity.BytesPerSecond)
		e.capacity.start()
		e.servers = append(e.servers, e.capacity)
	}

	if cfg.Checkpoint.Enabled && e.logMgr.Enabled() {
		e.ckptServer = wal.NewScheduler(e.logMgr, wal.SchedulerConfig{
			Interval:   cfg.CheckpointInterval(),
			MinRecords: cfg.Checkpoint.MinRecords,
		}, e.logger)
		e.ckptServer.OnCheckpoint(func(wal.LSN) {
			e.ckptMostRecent.Store(time.Now().Unix())
		})
		e.ckptServer.Start()
		e.servers = append(e.servers, e.ckptServer)
	}

	return nil
}

func (e *Engine) walConfig() *wal.Config {
	cfg := wal.DefaultConfig()
	cfg.Enabled = e.cfg.WAL.Enabled
	cfg.Directory = e.cfg.GetWALDirectory()
	cfg.SegmentSize = e.cfg.WAL.SegmentSize
	cfg.BufferSize = e.cfg.WAL.BufferSize
	cfg.SyncOnCommit = e.cfg.WAL.SyncOnCommit
	return cfg
}

// applyLogRecord replays one log record into engine state. Data-plane
// records are applied by the storage layer; the lifecycle controller only
// cares about metadata creation, which can include the history table's
// catalog entry.
func (e *Engine) applyLogRecord(rec *wal.Record) error {
	switch rec.Type {
	case wal.RecordTypeCreateTable:
		uri := string(rec.Data)
		if _, err := e.meta.Get(uri); err == nil {
			return nil
		}
		return e.meta.Insert(uri, "version=1")
	default:
		return nil
	}
}
