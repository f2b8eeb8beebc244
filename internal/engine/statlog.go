package engine

import (
	"sync"
	"time"

	"github.com/petradb/petra/internal/log"
)

// statLogServer periodically logs engine statistics. It starts before the
// other optional services so they can query whether statistics are enabled.
type statLogServer struct {
	engine   *Engine
	logger   log.Logger
	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

func newStatLogServer(e *Engine, interval time.Duration) *statLogServer {
	return &statLogServer{
		engine:   e,
		logger:   e.logger.With("subsystem", "statlog"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *statLogServer) Name() string { return "statlog" }

func (s *statLogServer) start() {
	s.started = true
	s.wg.Add(1)
	go s.loop()
}

// Destroy stops the server, emitting one final round of statistics. Safe on
// a never-started server.
func (s *statLogServer) Destroy() error {
	if !s.started {
		return nil
	}
	s.started = false
	close(s.stopCh)
	s.wg.Wait()
	s.emit()
	return nil
}

func (s *statLogServer) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.emit()
		case <-s.stopCh:
			return
		}
	}
}

func (s *statLogServer) emit() {
	e := s.engine

	e.sessionMu.Lock()
	active := 0
	for _, sess := range e.sessions {
		if sess != nil && sess.active {
			active++
		}
	}
	e.sessionMu.Unlock()

	args := []any{"active_sessions", active, "ckpt_most_recent", e.CheckpointMostRecent()}
	if c := e.blockCache; c != nil {
		if m := c.Metrics(); m != nil {
			args = append(args, "cache_hits", m.Hits(), "cache_misses", m.Misses())
		}
	}
	s.logger.Info("statistics", args...)
}
