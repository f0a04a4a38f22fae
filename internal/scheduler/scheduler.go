package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/analyzer"
	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/repository"
	"inbox-autopilot-go/internal/staging"
)

// Scheduler runs the two periodic sweeps: pattern analysis per mailbox and
// staged-action expiry processing.
type Scheduler struct {
	cron      *cron.Cron
	config    *config.SchedulerConfig
	engine    *analyzer.Engine
	pipeline  *staging.Pipeline
	events    *repository.EventRepository
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, engine *analyzer.Engine, pipeline *staging.Pipeline, events *repository.EventRepository) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		config:   cfg,
		engine:   engine,
		pipeline: pipeline,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// Support restart after Stop: the previous context is cancelled and the
	// previous cron instance is stopped, so both are rebuilt.
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(cron.WithSeconds())

	// @every handles intervals beyond what a minutes field can express; the
	// analysis default is six hours.
	analysisSchedule := fmt.Sprintf("@every %dm", s.config.AnalysisIntervalMinutes)
	if _, err := s.cron.AddFunc(analysisSchedule, s.runAnalysis); err != nil {
		return fmt.Errorf("failed to add analysis cron job: %w", err)
	}

	sweepSchedule := fmt.Sprintf("@every %dm", s.config.SweepIntervalMinutes)
	if _, err := s.cron.AddFunc(sweepSchedule, s.runSweep); err != nil {
		return fmt.Errorf("failed to add sweep cron job: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started: analysis every %dm, sweep every %dm",
		s.config.AnalysisIntervalMinutes, s.config.SweepIntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Wait waits for in-flight jobs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunSweepOnce triggers the staged-action sweep outside its schedule.
func (s *Scheduler) RunSweepOnce() (*staging.SweepResult, error) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	return s.pipeline.Sweep(ctx)
}

// runAnalysis analyzes every mailbox with recent activity. Each mailbox is
// independent; one failing does not stop the rest.
func (s *Scheduler) runAnalysis() {
	s.wg.Add(1)
	defer s.wg.Done()

	logrus.Info("Starting scheduled pattern analysis")
	start := time.Now()

	users, err := s.events.ListUsers(s.ctx)
	if err != nil {
		logrus.Errorf("Failed to list users for analysis: %v", err)
		return
	}

	for _, userID := range users {
		if err := s.engine.AnalyzeAllMailboxes(s.ctx, userID); err != nil {
			logrus.Errorf("Failed to analyze mailboxes for user %s: %v", userID, err)
		}
	}

	logrus.Infof("Scheduled pattern analysis completed in %v", time.Since(start))
}

// runSweep processes expired staged actions.
func (s *Scheduler) runSweep() {
	s.wg.Add(1)
	defer s.wg.Done()

	if _, err := s.pipeline.Sweep(s.ctx); err != nil {
		logrus.Errorf("Staged action sweep failed: %v", err)
	}
}
