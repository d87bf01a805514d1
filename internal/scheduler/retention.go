package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep once a day at midnight
const DefaultSchedule = "@daily"

// Cleaner deletes history older than a number of days
type Cleaner interface {
	Cleanup(ctx context.Context, days int) (int64, error)
}

// Retention runs the history cleanup on a cron schedule
type Retention struct {
	mu       sync.Mutex
	cron     *cron.Cron
	cleaner  Cleaner
	schedule string
	days     int
	running  bool
	logger   *slog.Logger
}

// NewRetention validates schedule and prepares a sweep that keeps days of
// history. It does not start anything.
func NewRetention(cleaner Cleaner, schedule string, days int, logger *slog.Logger) (*Retention, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retention{
		cron:     cron.New(),
		cleaner:  cleaner,
		schedule: schedule,
		days:     days,
		logger:   logger,
	}, nil
}

// Enabled reports whether the sweep has anything to do
func (r *Retention) Enabled() bool {
	return r.days > 0
}

// Start schedules the sweep. It is a no-op when retention is disabled or
// already running.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	if !r.Enabled() {
		r.logger.Info("history retention disabled")
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}
	r.cron.Start()
	r.running = true
	r.logger.Info("history retention scheduled", "schedule", r.schedule, "days", r.days)
	return nil
}

// RunOnce performs one sweep. Failures are logged and returned.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	n, err := r.cleaner.Cleanup(ctx, r.days)
	if err != nil {
		r.logger.Error("history retention failed", "days", r.days, "error", err)
		return 0, err
	}
	r.logger.Info("history retention completed", "deleted", n)
	return n, nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
}
