package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"MarketPulse/internal/model"
	"MarketPulse/internal/pipeline"
)

// Refresher runs one refresh.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*pipeline.Report, error)
}

// Notifier pushes a finished snapshot somewhere.
type Notifier interface {
	NotifySnapshot(ctx context.Context, snap *model.Snapshot) error
}

// Scheduler manages the cron-driven refreshes.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Notifier  Notifier
	Ctx       context.Context

	log zerolog.Logger
}

// NewScheduler creates a Scheduler evaluating cron specs (with seconds) in loc.
// A refresh still running when its next tick fires is skipped. notifier may be nil.
func NewScheduler(ctx context.Context, refresher Refresher, notifier Notifier, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	log = log.With().Str("component", "scheduler").Logger()
	cronLog := cron.PrintfLogger(&log)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Refresher: refresher,
		Notifier:  notifier,
		Ctx:       ctx,
		log:       log,
	}
}

// RegisterAll registers the daily and intraday refresh tasks. An empty expression is skipped.
func (s *Scheduler) RegisterAll(dailyCron, intradayCron string) error {
	if dailyCron != "" {
		if _, err := s.Cron.AddFunc(dailyCron, func() { s.refreshTask("daily", pipeline.TriggerCron) }); err != nil {
			return fmt.Errorf("register daily task: %w", err)
		}
	}
	if intradayCron != "" {
		if _, err := s.Cron.AddFunc(intradayCron, func() { s.refreshTask("intraday", pipeline.TriggerCron) }); err != nil {
			return fmt.Errorf("register intraday task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("tasks", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes a refresh immediately (run on start).
func (s *Scheduler) RunNow() {
	s.refreshTask("startup", pipeline.TriggerStartup)
}

func (s *Scheduler) refreshTask(name, trigger string) {
	s.log.Info().Str("task", name).Msg("running refresh task")
	report, err := s.Refresher.Refresh(s.Ctx, trigger)
	if err != nil {
		if errors.Is(err, pipeline.ErrRefreshInProgress) {
			s.log.Warn().Str("task", name).Msg("refresh already running, tick skipped")
			return
		}
		s.log.Error().Err(err).Str("task", name).Msg("refresh task failed")
		return
	}
	s.trySend(report.Snapshot)
}

func (s *Scheduler) trySend(snap *model.Snapshot) {
	if s.Notifier == nil || snap == nil {
		return
	}
	if err := s.Notifier.NotifySnapshot(s.Ctx, snap); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
