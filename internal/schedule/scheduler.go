package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Config struct {
	Location *time.Location
	// ScanCron and SummaryCron are standard five-field cron expressions.
	ScanCron    string
	SummaryCron string
	// Scan and DailySummary are the job bodies, closed over their own
	// dependencies. Jobs receive the process context so shutdown cancels
	// them cooperatively.
	Scan         func(ctx context.Context)
	DailySummary func(ctx context.Context)
	Logger       *zap.Logger
}

// Scheduler runs the periodic catch-up scan and daily summary jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(ctx context.Context, cfg Config) (*Scheduler, error) {
	if cfg.Scan == nil || cfg.DailySummary == nil {
		return nil, errors.New("scan and daily summary jobs are required")
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	runner := cron.New(cron.WithLocation(location))

	if _, err := runner.AddFunc(cfg.ScanCron, func() { cfg.Scan(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid scan cron %q: %w", cfg.ScanCron, err)
	}
	if _, err := runner.AddFunc(cfg.SummaryCron, func() { cfg.DailySummary(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid summary cron %q: %w", cfg.SummaryCron, err)
	}

	return &Scheduler{cron: runner, logger: logger}, nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for running jobs to finish, up to
// the deadline on ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped before jobs finished")
	}
	s.logger.Info("scheduler stopped")
}
