package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/preload"
)

// Service drives the controller: one background reconciliation pass per
// tick, plus one immediately on start.
type Service struct {
	interval   time.Duration
	controller *preload.Controller
	logger     *zap.Logger

	records atomic.Pointer[[]*preload.Record]
	paused  atomic.Bool
	running atomic.Bool

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewService(interval time.Duration, controller *preload.Controller, records []*preload.Record, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		interval:   interval,
		controller: controller,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
	s.SetRecords(records)
	return s
}

// Start blocks until ctx is done or Stop is called. It does not wait for a
// pass that is still running; use the controller's Wait for that.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor is already running")
	}
	defer s.running.Store(false)

	s.logger.Info("Starting monitor",
		zap.Duration("poll_interval", s.interval),
		zap.Int("apps", len(s.Records())),
		zap.String("backend", s.controller.Backend()))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Monitor stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info("Monitor stopped")
			return nil

		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if s.paused.Load() {
		return
	}
	if !s.controller.StartReconcile(ctx, s.Records()) {
		s.logger.Debug("Previous pass still running, tick dropped")
	}
}

// Trigger requests a pass outside the tick schedule. It reports false when
// a pass is already running.
func (s *Service) Trigger(ctx context.Context) bool {
	return s.controller.StartReconcile(ctx, s.Records())
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Pause suspends scheduled passes; explicit triggers still run
func (s *Service) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Info("Monitor paused")
	}
}

func (s *Service) Resume() {
	if s.paused.Swap(false) {
		s.logger.Info("Monitor resumed")
	}
}

func (s *Service) Paused() bool {
	return s.paused.Load()
}

// SetRecords replaces the record list used by the following passes. A
// pass already running keeps the list it started with.
func (s *Service) SetRecords(records []*preload.Record) {
	cp := append([]*preload.Record(nil), records...)
	s.records.Store(&cp)
}

func (s *Service) Records() []*preload.Record {
	p := s.records.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (s *Service) Controller() *preload.Controller {
	return s.controller
}
