package wal

import (
	"sync"
	"time"

	"github.com/petradb/petra/internal/log"
)

// Scheduler runs periodic checkpoints to limit recovery time. It is an
// optional service thread: started only when checkpointing is enabled, after
// the log is open for writes.
type Scheduler struct {
	manager *Manager
	logger  log.Logger

	interval   time.Duration
	minRecords int

	mu                 sync.Mutex
	lastCheckpointLSN  LSN
	lastCheckpointTime time.Time

	// onCheckpoint, when set, observes each completed checkpoint. The
	// engine uses it to refresh its most-recent-checkpoint stamp.
	onCheckpoint func(LSN)

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// SchedulerConfig holds checkpoint scheduler configuration.
type SchedulerConfig struct {
	Interval   time.Duration
	MinRecords int
}

// NewScheduler creates a checkpoint scheduler.
func NewScheduler(manager *Manager, cfg SchedulerConfig, logger log.Logger) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		manager:    manager,
		logger:     logger.With("subsystem", "checkpoint"),
		interval:   interval,
		minRecords: cfg.MinRecords,
		stopCh:     make(chan struct{}),
	}
}

// Name identifies the server in logs.
func (s *Scheduler) Name() string { return "checkpoint" }

// Destroy stops the scheduler; the uniform service teardown shape.
func (s *Scheduler) Destroy() error {
	s.Stop()
	return nil
}

// OnCheckpoint registers a completion observer. Must be called before Start.
func (s *Scheduler) OnCheckpoint(fn func(LSN)) {
	s.onCheckpoint = fn
}

// Start begins periodic checkpointing.
func (s *Scheduler) Start() {
	s.started = true
	s.wg.Add(1)
	go s.loop()
}

// Stop stops the scheduler. Safe to call on a never-started scheduler.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.started = false
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Checkpoint(); err != nil {
				s.logger.Error("checkpoint failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Checkpoint performs one checkpoint.
func (s *Scheduler) Checkpoint() error {
	start := time.Now()

	lsn, err := s.manager.LogCheckpoint()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastCheckpointLSN = lsn
	s.lastCheckpointTime = time.Now()
	s.mu.Unlock()

	if s.onCheckpoint != nil {
		s.onCheckpoint(lsn)
	}

	s.logger.Debug("checkpoint complete", "lsn", uint64(lsn), "elapsed", time.Since(start))
	return nil
}

// LastCheckpointLSN returns the LSN of the most recent checkpoint.
func (s *Scheduler) LastCheckpointLSN() LSN {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCheckpointLSN
}
