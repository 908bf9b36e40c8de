package scheduler

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/vitalink/platform/pkg/common/logger"
	"github.com/vitalink/platform/pkg/hospital"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type countingRunner struct {
	mu    sync.Mutex
	calls int
	seen  chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{seen: make(chan struct{}, 16)}
}

func (r *countingRunner) RunPull(ctx context.Context, cfg *hospital.Config) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func pullConfig() *hospital.Config {
	return &hospital.Config{
		HospitalID:      "H1",
		ConnectorType:   hospital.ConnectorPullDBView,
		Enabled:         true,
		ScheduleMinutes: 1,
		DB:              &hospital.DBConfig{Type: hospital.EnginePostgres},
	}
}

func TestStartInstallsOneTimerForEnabledPull(t *testing.T) {
	sched := New(newCountingRunner())
	defer sched.Shutdown()

	sched.Start(pullConfig())
	if sched.Jobs() != 1 {
		t.Fatalf("expected 1 timer, got %d", sched.Jobs())
	}
}

func TestStartInstallsNothingWhenDisabled(t *testing.T) {
	sched := New(newCountingRunner())
	defer sched.Shutdown()

	cfg := pullConfig()
	cfg.Enabled = false
	sched.Start(cfg)
	if sched.Jobs() != 0 {
		t.Fatalf("expected no timers for disabled hospital, got %d", sched.Jobs())
	}
}

func TestStartInstallsNothingForPushConnector(t *testing.T) {
	sched := New(newCountingRunner())
	defer sched.Shutdown()

	cfg := pullConfig()
	cfg.ConnectorType = hospital.ConnectorPushRESTAPI
	sched.Start(cfg)
	if sched.Jobs() != 0 {
		t.Fatalf("expected no timers for push connector, got %d", sched.Jobs())
	}
}

func TestStartReplacesExistingTimerSet(t *testing.T) {
	sched := New(newCountingRunner())
	defer sched.Shutdown()

	sched.Start(pullConfig())
	sched.Start(pullConfig())
	if sched.Jobs() != 1 {
		t.Fatalf("expected replacement, got %d timers", sched.Jobs())
	}

	cfg := pullConfig()
	cfg.Enabled = false
	sched.Start(cfg)
	if sched.Jobs() != 0 {
		t.Fatalf("expected old timer removed, got %d", sched.Jobs())
	}
}

func TestTicksInvokeRunner(t *testing.T) {
	runner := newCountingRunner()
	sched := New(runner)
	sched.tickUnit = time.Millisecond
	defer sched.Shutdown()

	sched.Start(pullConfig())

	select {
	case <-runner.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a tick to invoke the runner")
	}
}

func TestShutdownStopsTicks(t *testing.T) {
	runner := newCountingRunner()
	sched := New(runner)
	sched.tickUnit = time.Millisecond

	sched.Start(pullConfig())
	select {
	case <-runner.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a tick before shutdown")
	}

	sched.Shutdown()
	if sched.Jobs() != 0 {
		t.Fatalf("expected no timers after shutdown, got %d", sched.Jobs())
	}

	settled := runner.count()
	time.Sleep(20 * time.Millisecond)
	// A tick already in flight at shutdown may land; no new ones may start.
	if runner.count() > settled+1 {
		t.Fatalf("ticks continued after shutdown: %d -> %d", settled, runner.count())
	}
}
