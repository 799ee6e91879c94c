package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jhenk/nhl-dfs-model/internal/pipeline"
)

// RefresherService runs the full pipeline on a schedule, for setups where
// fresh provider exports land on disk every morning. Each tick is an
// ordinary idempotent batch run against that day's dated files.
type RefresherService struct {
	runner    *pipeline.Runner
	logger    *logrus.Logger
	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewRefresherService creates a scheduled pipeline refresher.
func NewRefresherService(runner *pipeline.Runner, logger *logrus.Logger) *RefresherService {
	return &RefresherService{
		runner: runner,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules pipeline runs on the given cron expression.
func (s *RefresherService) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("refresher is already running")
	}

	_, err := s.cron.AddFunc(schedule, s.refresh)
	if err != nil {
		return fmt.Errorf("failed to schedule pipeline refresh: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Infof("Pipeline refresher started (schedule %q)", schedule)
	return nil
}

// Stop halts the schedule, letting an in-flight run finish.
func (s *RefresherService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.logger.Info("Pipeline refresher stopped")
}

// TriggerNow runs the pipeline immediately, outside the schedule.
func (s *RefresherService) TriggerNow() error {
	return s.runner.Run(time.Now())
}

func (s *RefresherService) refresh() {
	start := time.Now()
	s.logger.Info("Scheduled pipeline refresh starting")

	if err := s.runner.Run(start); err != nil {
		s.logger.Errorf("Scheduled pipeline refresh failed: %v", err)
		return
	}

	s.logger.Infof("Scheduled pipeline refresh completed in %s", time.Since(start).Round(time.Millisecond))
}
