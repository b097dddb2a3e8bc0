package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"RequisiteGraph/internal/ports"
)

// CronScheduler runs a job on a standard 5-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for spec, evaluated in loc (UTC when nil).
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, location: loc, now: time.Now}
}

// Validate parses the expression without starting anything.
func (c *CronScheduler) Validate() error {
	_, err := cron.ParseStandard(c.spec)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	return nil
}

// Next reports the next activation after from.
func (c *CronScheduler) Next(from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	return sched.Next(from.In(c.location)), nil
}

// Start registers job and begins firing. A second Start is a no-op. The
// scheduler stops by itself when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.location))
	if _, err := runner.AddFunc(c.spec, func() { job(c.now().In(c.location)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	runner.Start()
	c.cron = runner

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron runner and waits for a running job, or until ctx ends.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	done := runner.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
