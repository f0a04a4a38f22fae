package scheduler

import (
	"context"
	"testing"
	"time"

	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/staging"
)

// noopStagedStore implements staging.StagedStore with no pending work.
type noopStagedStore struct{}

func (noopStagedStore) Create(ctx context.Context, staged *model.StagedAction) error { return nil }
func (noopStagedStore) GetByID(ctx context.Context, userID, stagedID string) (*model.StagedAction, error) {
	return nil, nil
}
func (noopStagedStore) List(ctx context.Context, userID, mailboxID string, status model.StagedStatus) ([]model.StagedAction, error) {
	return nil, nil
}
func (noopStagedStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.StagedAction, error) {
	return nil, nil
}
func (noopStagedStore) TransitionFromStaged(ctx context.Context, stagedID string, next model.StagedStatus, at time.Time) (bool, error) {
	return false, nil
}
func (noopStagedStore) CountPending(ctx context.Context) (int64, error) { return 0, nil }

type noopAuditWriter struct{}

func (noopAuditWriter) Append(ctx context.Context, entry *model.AuditEntry) error { return nil }

func TestSchedulerRestart(t *testing.T) {
	cfg := &config.SchedulerConfig{
		AnalysisIntervalMinutes: 6,
		SweepIntervalMinutes:    15,
	}
	sched := NewScheduler(cfg, nil, nil, nil)

	if err := sched.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Fatalf("scheduler should be running after Start")
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if sched.IsRunning() {
		t.Fatalf("scheduler should not be running after Stop")
	}
	if err := sched.Start(); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Fatalf("scheduler should be running after second Start")
	}
	// context should be active
	if sched.ctx == nil || sched.ctx.Err() != nil {
		t.Fatalf("scheduler context should be active after restart")
	}
	sched.Stop()
}

func TestRunSweepOnceAcrossRestart(t *testing.T) {
	cfg := &config.SchedulerConfig{
		AnalysisIntervalMinutes: 6,
		SweepIntervalMinutes:    15,
	}
	pipeline := staging.NewPipeline(noopStagedStore{}, noopAuditWriter{}, nil, nil, nil, config.StagingConfig{
		SweepBatch: 100,
		SweepChunk: 5,
	})
	sched := NewScheduler(cfg, nil, pipeline, nil)

	result, err := sched.RunSweepOnce()
	if err != nil {
		t.Fatalf("sweep before start failed: %v", err)
	}
	if result.Executed != 0 {
		t.Fatalf("expected empty sweep, got %d executed", result.Executed)
	}

	// The on-demand sweep must keep working on the rebuilt context after a
	// stop/start cycle.
	if err := sched.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := sched.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer sched.Stop()

	if _, err := sched.RunSweepOnce(); err != nil {
		t.Fatalf("sweep after restart failed: %v", err)
	}
}

func TestSchedulerDoubleStartFails(t *testing.T) {
	cfg := &config.SchedulerConfig{
		AnalysisIntervalMinutes: 6,
		SweepIntervalMinutes:    15,
	}
	sched := NewScheduler(cfg, nil, nil, nil)

	if err := sched.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer sched.Stop()

	if err := sched.Start(); err == nil {
		t.Fatalf("second start while running should fail")
	}
}
