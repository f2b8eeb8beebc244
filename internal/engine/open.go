package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/petradb/petra/internal/cache"
	"github.com/petradb/petra/internal/catalog"
	"github.com/petradb/petra/internal/config"
	"github.com/petradb/petra/internal/errors"
	"github.com/petradb/petra/internal/log"
	"github.com/petradb/petra/internal/txn"
)

// Open brings an engine instance from closed to fully operational: handle
// allocation, the core subsystem creates, then StartWorkers. Startup is
// fail-fast; on any step's failure the shutdown sequencer runs over whatever
// partial state exists and the first error is returned.
func Open(cfg *config.Config, logger log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errors.IOErrorf("failed to create data directory: %v", err)
	}

	e := &Engine{
		cfg:         cfg,
		logger:      logger.With("engine", "petra"),
		clock:       monotonicClock,
		fs:          osFileSystem{},
		optrack:     newOpTracker(),
		collators:   newComponentRegistry("collator"),
		compressors: newComponentRegistry("compressor"),
		dataSources: newComponentRegistry("data source"),
		encryptors:  newComponentRegistry("encryptor"),
		extractors:  newComponentRegistry("extractor"),
	}
	e.dummySession = Session{engine: e, name: "dummy", slot: -1}
	e.defaultSession.Store(&e.dummySession)

	if cfg.Salvage {
		e.flags.set(flagSalvage)
	}
	if cfg.LeakMemoryOnClose {
		e.flags.set(flagLeakMemory)
	}

	if err := e.open(); err != nil {
		if cerr := e.Close(); cerr != nil {
			e.logger.Error("cleanup after failed open reported an error", "error", cerr)
		}
		return nil, err
	}
	if err := e.StartWorkers(); err != nil {
		if cerr := e.Close(); cerr != nil {
			e.logger.Error("cleanup after failed open reported an error", "error", cerr)
		}
		return nil, err
	}

	e.logger.Info("engine open", "data_dir", cfg.DataDir)
	return e, nil
}

// open runs the first phase of the startup sequence: everything up to and
// including global transaction state, in strict order. Worker threads start
// afterwards in StartWorkers.
func (e *Engine) open() error {
	cfg := e.cfg

	// The lock file guards the instance against concurrent processes; held
	// open for the instance's lifetime.
	if err := e.acquireLockFile(); err != nil {
		return err
	}

	if cfg.TraceFile != "" {
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.IOErrorf("failed to open trace file: %v", err)
		}
		e.traceFile = f
	}

	meta, err := catalog.Open(cfg.GetMetadataPath())
	if err != nil {
		return err
	}
	e.meta = meta

	// Session table, sized once; never resized.
	e.sessions = make([]*Session, cfg.MaxSessions)

	// Open the default session before any service thread starts, so later
	// steps can allocate session-scoped resources that close can find.
	s, err := e.openInternalSession("connection")
	if err != nil {
		return err
	}

	// Swap the static placeholder default session for the allocated one.
	// The allocation above went into a local first: allocating directly
	// into the default-session slot would confuse error handling, since
	// session allocation itself runs under the default session.
	e.defaultSession.Store(s)

	e.ckptMostRecent.Store(time.Now().Unix())

	// Publish: the handle may already be discoverable, so the fields set
	// above must be visible before any other thread reads through it.
	e.published.Store(true)

	// Create the cache; later steps pin pages through it.
	bc, err := cache.Create(cache.Config{
		MaxBytes:    cfg.Cache.SizeMB * 1024 * 1024,
		NumCounters: cfg.Cache.NumCounters,
	}, e.logger)
	if err != nil {
		return err
	}
	e.blockCache = bc
	if cfg.Cache.SharedPool != "" {
		e.cachePool = cache.GetPool(cfg.Cache.SharedPool)
		e.cachePool.Connect(bc)
	}

	// Transaction state precedes recovery, which generates transactions.
	g, err := txn.Init()
	if err != nil {
		return err
	}
	e.txnGlobal = g

	return nil
}

func (e *Engine) acquireLockFile() error {
	path := e.cfg.GetLockPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.IOErrorf("%s exists: instance is in use by another process", path)
		}
		return errors.IOErrorf("failed to create lock file: %v", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	e.lockFile = f
	return nil
}
