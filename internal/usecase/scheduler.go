package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"RequisiteGraph/internal/ports"
)

// Scheduler wires the cron driver with periodic resolution runs.
type Scheduler struct {
	driver      ports.Scheduler
	resolver    *Resolver
	departments []string
	notifier    ports.Notifier
	logger      *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring refreshes. notifier may be nil.
func NewScheduler(driver ports.Scheduler, resolver *Resolver, departments []string, notifier ports.Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:      driver,
		resolver:    resolver,
		departments: departments,
		notifier:    notifier,
		logger:      logger,
	}
}

// Start registers the refresh job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.resolver == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// RunOnce resolves every configured department and publishes the summary.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) Summary {
	s.logger.Info("scheduled refresh started", "trigger", trigger, "departments", s.departments)
	summary := s.resolver.ResolveAll(ctx, s.departments)
	s.logger.Info("scheduled refresh finished", "summary", summary)

	if s.notifier != nil {
		if err := s.notifier.PublishSummary(ctx, FormatSummary(trigger, summary)); err != nil {
			s.logger.Warn("summary notification failed", "error", err)
		}
	}
	return summary
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// FormatSummary renders a run summary as a short chat message.
func FormatSummary(trigger time.Time, s Summary) string {
	msg := fmt.Sprintf("Requisite graph refresh (%s)\nDepartments: %v\nCourses segmented: %d\nRecords stored: %d\nAlready known: %d",
		trigger.Format("Mon Jan 2 15:04"), s.Departments, s.Segmented, s.Persisted, s.Skipped)
	if n := s.Failures(); n > 0 {
		msg += fmt.Sprintf("\nIssues: %d (not found %d, fetch %d, persistence %d, malformed titles %d)",
			n, s.NotFound, s.FetchFailures, s.PersistFailures, s.Anomalies)
	}
	if s.Cancelled {
		msg += "\nRun was cancelled before completion."
	}
	return msg
}
