package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ConsensusAnalyzer/internal/ports"
)

// StaleEvictor removes aggregations idle since cutoff.
type StaleEvictor interface {
	EvictStale(cutoff time.Time) []uuid.UUID
}

// Sweeper wires the scheduler driver with stale-aggregation eviction, so topics
// that failed permanently do not stay in memory forever.
type Sweeper struct {
	driver ports.Scheduler
	store  StaleEvictor
	ttl    time.Duration
	clock  func() time.Time
	logger *slog.Logger
}

// NewSweeper returns a helper to start/stop recurring eviction.
func NewSweeper(driver ports.Scheduler, store StaleEvictor, ttl time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{driver: driver, store: store, ttl: ttl, clock: time.Now, logger: logger}
}

// Sweep evicts every aggregation idle longer than the ttl.
func (s *Sweeper) Sweep() []uuid.UUID {
	if s.store == nil || s.ttl <= 0 {
		return nil
	}
	evicted := s.store.EvictStale(s.clock().Add(-s.ttl))
	for _, topic := range evicted {
		s.logger.Warn("evicted stale aggregation", "topic", topic, "ttl", s.ttl)
	}
	return evicted
}

// Start registers the sweep with the provided scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.driver == nil || s.store == nil {
		return nil
	}

	return s.driver.Start(ctx, func() { s.Sweep() })
}

// Stop gracefully tears down the underlying scheduler.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
