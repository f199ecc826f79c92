package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper removes resolved agent jobs older than a cutoff.
type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int64, error)
}

type SchedulerConfig struct {
	Schedule      string // cron spec, e.g. "@every 1h"
	JobRetention  time.Duration
	ExportEnabled bool
}

// Scheduler runs periodic maintenance on a cron.
type Scheduler struct {
	sweeper  Sweeper
	exporter *FeedbackExporter
	config   SchedulerConfig
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewScheduler builds a scheduler; sweeper and exporter may each be nil.
func NewScheduler(sweeper Sweeper, exporter *FeedbackExporter, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		exporter: exporter,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
	}
}

func (s *Scheduler) Start() error {
	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.RunSweep(context.Background()) }); err != nil {
			return fmt.Errorf("failed to schedule job sweep: %w", err)
		}
	}
	if s.config.ExportEnabled && s.exporter != nil {
		if _, err := s.cron.AddFunc(s.config.Schedule, s.RunExport); err != nil {
			return fmt.Errorf("failed to schedule rating export: %w", err)
		}
	} else {
		s.logger.Info("Rating export is disabled")
	}

	s.cron.Start()
	s.logger.Info("Maintenance scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Int("entries", len(s.cron.Entries())))
	return nil
}

// Stop waits for running entries to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) RunSweep(ctx context.Context) {
	removed, err := s.sweeper.Sweep(ctx, s.config.JobRetention)
	if err != nil {
		s.logger.Error("Job sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Swept agent jobs", zap.Int64("removed", removed))
}

func (s *Scheduler) RunExport() {
	if _, err := s.exporter.RunExport(); err != nil {
		s.logger.Error("Rating export failed", zap.Error(err))
	}
}
