package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"ConsensusAnalyzer/internal/ports"
)

// CronScheduler runs a single job on a cron spec ("@every 5m", "*/10 * * * *").
type CronScheduler struct {
	spec    string
	cron    *cron.Cron
	mu      sync.Mutex
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for spec. Overlapping runs are skipped.
func NewCronScheduler(spec string, logger *log.Logger) *CronScheduler {
	cronLogger := cron.DiscardLogger
	if logger != nil {
		cronLogger = cron.PrintfLogger(logger)
	}
	return &CronScheduler{
		spec: spec,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
}

// Start registers job and begins ticking until Stop or ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func()) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	if _, err := c.cron.AddFunc(c.spec, job); err != nil {
		return fmt.Errorf("add cron job %q: %w", c.spec, err)
	}
	c.cron.Start()
	c.started = true

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish or ctx to end.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	done := c.cron.Stop()
	c.mu.Unlock()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
