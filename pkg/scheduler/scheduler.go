// Package scheduler drives recurring pull pipeline runs. The process holds
// at most one active timer set; installing a new configuration replaces the
// old set without waiting for an in-flight run to finish.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/vitalink/platform/pkg/common/logger"
	"github.com/vitalink/platform/pkg/hospital"
)

// Runner is the pull pipeline entry point invoked on every tick.
type Runner interface {
	RunPull(ctx context.Context, cfg *hospital.Config)
}

type Scheduler struct {
	runner Runner

	mu   sync.Mutex
	stop chan struct{}
	jobs int

	// tickUnit scales schedule_minutes into a timer interval. Tests shrink it.
	tickUnit time.Duration
}

func New(runner Runner) *Scheduler {
	return &Scheduler{runner: runner, tickUnit: time.Minute}
}

// Start replaces any active timer set with timers for cfg. Exactly one
// interval timer is installed when the hospital is enabled and uses a pull
// connector; disabled or push-only configurations install zero timers. The
// configuration is captured at install time: later edits take effect only on
// the next Start.
func (s *Scheduler) Start(cfg *hospital.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if cfg == nil || !cfg.Enabled || !cfg.ConnectorType.IsPull() {
		return
	}

	captured := *cfg
	stop := make(chan struct{})
	s.stop = stop
	s.jobs = 1

	logger.Log.WithFields(map[string]interface{}{
		"hospital_id":      captured.HospitalID,
		"schedule_minutes": captured.ScheduleMinutes,
	}).Info("Pull schedule installed")

	go s.run(&captured, stop)
}

// Shutdown removes the active timer set. It does not wait for an in-flight
// run to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Jobs reports the number of installed timers.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs
}

func (s *Scheduler) stopLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.jobs = 0
}

// run drives ticks inline on one goroutine, so a run never overlaps itself:
// a slow run simply delays the next tick for the same hospital.
func (s *Scheduler) run(cfg *hospital.Config, stop chan struct{}) {
	ticker := time.NewTicker(time.Duration(cfg.ScheduleMinutes) * s.tickUnit)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runner.RunPull(context.Background(), cfg)
		}
	}
}
