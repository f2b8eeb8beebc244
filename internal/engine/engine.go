// Package engine implements the Petra instance lifecycle: the shared
// instance handle, the startup and shutdown sequencers that compose the
// cache, transaction state, write-ahead log, recovery, history table and
// service threads, and the cooperative per-operation deadline timer.
package engine

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/petradb/petra/internal/cache"
	"github.com/petradb/petra/internal/catalog"
	"github.com/petradb/petra/internal/config"
	"github.com/petradb/petra/internal/log"
	"github.com/petradb/petra/internal/txn"
	"github.com/petradb/petra/internal/wal"
)

// Engine is the instance handle. It exclusively owns every subsystem handle;
// each is nil until its create step succeeds and nil again once destroyed,
// so shutdown can probe them without bookkeeping.
type Engine struct {
	cfg    *config.Config
	logger log.Logger

	flags flagSet

	// published is stored once the handle's core fields are assigned, so a
	// thread that observes it true also observes those fields.
	published atomic.Bool

	// dummySession is the static placeholder default session. The default
	// session points at it before startup swaps in a real one and again
	// after close, so diagnostic output always has a valid context.
	dummySession   Session
	defaultSession atomic.Pointer[Session]

	sessionMu sync.Mutex
	sessions  []*Session // fixed size, never resized

	ckptMostRecent atomic.Int64 // unix seconds

	clock Clock

	fs        FileSystem
	meta      *catalog.Catalog
	metaTrack *catalog.Tracker

	blockCache *cache.Cache
	cachePool  *cache.Pool
	evict      *cache.EvictionServer
	txnGlobal  *txn.Global
	logMgr     *wal.Manager
	ckptServer *wal.Scheduler
	statLog    *statLogServer
	sweep      *sweepServer
	capacity   *capacityServer

	// servers lists started service threads in start order, for
	// introspection. Shutdown order is the fixed script in Close, not this
	// slice.
	servers []Service

	lockFile  *os.File
	traceFile *os.File
	optrack   *opTracker

	collators   *componentRegistry
	compressors *componentRegistry
	dataSources *componentRegistry
	encryptors  *componentRegistry
	extractors  *componentRegistry

	extMu      sync.Mutex
	extensions []*Extension

	backup *backupState

	dhandleMu sync.Mutex
	dhandles  []*dataHandle

	// hsExisted records the history-table existence result computed during
	// the most recent StartWorkers.
	hsExisted bool

	openFileMu sync.Mutex
	openFiles  []*os.File
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// DefaultSession returns the engine's internal session.
func (e *Engine) DefaultSession() *Session {
	return e.defaultSession.Load()
}

// StatisticsEnabled reports whether the statistics logger is running.
// Optional services started later query this.
func (e *Engine) StatisticsEnabled() bool {
	return e.statLog != nil
}

// CheckpointMostRecent returns the unix time of the most recent checkpoint.
func (e *Engine) CheckpointMostRecent() int64 {
	return e.ckptMostRecent.Load()
}

// trackOpenFile records an OS file handle owned by the instance so close can
// release it if nothing else does.
func (e *Engine) trackOpenFile(f *os.File) {
	e.openFileMu.Lock()
	e.openFiles = append(e.openFiles, f)
	e.openFileMu.Unlock()
}
