package engine

import (
	"sync"
	"time"

	"github.com/petradb/petra/internal/log"
)

// sweepServer reclaims closed-but-cached data handles in the background.
type sweepServer struct {
	engine   *Engine
	logger   log.Logger
	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

func newSweepServer(e *Engine, interval time.Duration) *sweepServer {
	return &sweepServer{
		engine:   e,
		logger:   e.logger.With("subsystem", "sweep"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *sweepServer) Name() string { return "sweep" }

func (s *sweepServer) start() {
	s.started = true
	s.wg.Add(1)
	go s.loop()
}

// Destroy stops the sweep thread. Safe on a never-started server.
func (s *sweepServer) Destroy() error {
	if !s.started {
		return nil
	}
	s.started = false
	close(s.stopCh)
	s.wg.Wait()
	return nil
}

func (s *sweepServer) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.engine.Closing() {
				return
			}
			if swept := s.engine.sweepDeadHandles(); swept > 0 {
				s.logger.Debug("swept dead handles", "count", swept)
			}
		case <-s.stopCh:
			return
		}
	}
}
