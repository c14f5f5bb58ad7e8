package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"kinolog/internal/controllers"
)

// pipelineRunner is the surface of the pipeline the scheduler depends on.
type pipelineRunner interface {
	Run(ctx context.Context) (*controllers.Result, error)
}

// Scheduler re-runs the pipeline on a cron schedule for watch mode. Cron
// fires every tick in its own goroutine, so runs are serialized here: a tick
// that arrives while a run is still in progress is skipped, not queued.
type Scheduler struct {
	cron     *cron.Cron
	pipeline pipelineRunner
	logger   *logrus.Logger
	running  sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(pipeline *controllers.Pipeline, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		pipeline: pipeline,
		logger:   logger,
	}
}

// Start registers the pipeline on the given cron expression, runs it once
// immediately, then keeps running it on schedule until Stop.
func (s *Scheduler) Start(spec string) error {
	s.logger.WithField("schedule", spec).Info("Starting scheduler")

	_, err := s.cron.AddFunc(spec, s.runPipeline)
	if err != nil {
		return fmt.Errorf("failed to add pipeline job: %w", err)
	}

	s.cron.Start()
	s.runPipeline()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runPipeline executes one scheduled run. The documents are shared mutable
// state, so overlapping runs are skipped outright.
func (s *Scheduler) runPipeline() {
	if !s.running.TryLock() {
		s.logger.Warn("Previous pipeline run still in progress, skipping this tick")
		return
	}
	defer s.running.Unlock()

	s.logger.Info("Running scheduled pipeline")

	if _, err := s.pipeline.Run(context.Background()); err != nil {
		s.logger.WithError(err).Error("Scheduled pipeline failed")
		return
	}

	s.logger.Info("Scheduled pipeline completed")
}
