package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

// PartialProcessor handles one ingest event.
type PartialProcessor interface {
	ProcessPartial(ctx context.Context, event domain.IngestEvent) error
}

// Consumer pulls events from a gateway and processes them with bounded
// parallelism. Per-event failures never stop consumption.
type Consumer struct {
	gateway   ports.IngestGateway
	processor PartialProcessor
	workers   int
	logger    *slog.Logger
}

// NewConsumer wires a gateway to a processor. workers <= 0 means one.
func NewConsumer(gateway ports.IngestGateway, processor PartialProcessor, workers int, logger *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consumer{gateway: gateway, processor: processor, workers: workers, logger: logger}
}

// Run consumes until the gateway stops, then waits for in-flight events.
// Deliveries that arrive after ctx is done or after the gateway returned are
// dropped, so no work is scheduled once Run starts waiting.
func (c *Consumer) Run(ctx context.Context) error {
	if c.gateway == nil || c.processor == nil {
		return fmt.Errorf("consumer misconfigured")
	}

	var (
		g           errgroup.Group
		mu          sync.Mutex
		closed      bool
		dispatching sync.WaitGroup
	)
	g.SetLimit(c.workers)

	runErr := c.gateway.Run(ctx, func(ctx context.Context, event domain.IngestEvent) {
		mu.Lock()
		if closed || ctx.Err() != nil {
			mu.Unlock()
			c.logger.Warn("event dropped during shutdown", "topic", event.TopicID)
			return
		}
		dispatching.Add(1)
		mu.Unlock()
		defer dispatching.Done()

		g.Go(func() error {
			c.handle(ctx, event)
			return nil
		})
	})

	mu.Lock()
	closed = true
	mu.Unlock()
	// handlers blocked on a free worker finish their g.Go before Wait starts
	dispatching.Wait()
	_ = g.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("ingest gateway: %w", runErr)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, event domain.IngestEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event processing panicked", "topic", event.TopicID, "panic", r)
		}
	}()

	err := c.processor.ProcessPartial(ctx, event)
	if err == nil {
		return
	}

	var validationErr *ValidationError
	var processingErr *ProcessingError
	switch {
	case errors.As(err, &validationErr):
		c.logger.Warn("event rejected", "topic", event.TopicID, "error", err)
	case errors.As(err, &processingErr):
		c.logger.Error("event processing failed", "topic", event.TopicID, "stage", processingErr.Stage, "error", err)
	default:
		c.logger.Error("unexpected event failure", "topic", event.TopicID, "error", err)
	}
}
