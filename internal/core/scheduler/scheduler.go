// Package scheduler runs the daily detection batch on a cron schedule
// in serve mode.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
)

// Scheduler wraps the cron runner around the pipeline trigger.
type Scheduler struct {
	cfg    config.SchedulerConfig
	cron   *cron.Cron
	logger *logrus.Logger
	run    func(context.Context) error
}

// New creates the scheduler. run is invoked on each tick; overlapping
// ticks are skipped rather than queued, since a second concurrent
// batch over the same data adds nothing.
func New(cfg config.SchedulerConfig, logger *logrus.Logger, run func(context.Context) error) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone %q: %w", cfg.Timezone, err)
	}

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(location),
		cron.WithSeconds(),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		),
	)

	return &Scheduler{cfg: cfg, cron: c, logger: logger, run: run}, nil
}

// Start registers the batch job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		s.logger.Info("Scheduled detection batch starting")
		if err := s.run(context.Background()); err != nil {
			s.logger.WithError(err).Error("Scheduled detection batch failed")
		}
	})
	if err != nil {
		return fmt.Errorf("register batch schedule %q: %w", s.cfg.Cron, err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"cron":     s.cfg.Cron,
		"timezone": s.cfg.Timezone,
	}).Info("Batch scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Batch scheduler stopped")
}
