package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ConsensusAnalyzer/internal/aggregation"
	"ConsensusAnalyzer/internal/completion"
	"ConsensusAnalyzer/internal/config"
	"ConsensusAnalyzer/internal/infrastructure/bus"
	"ConsensusAnalyzer/internal/infrastructure/ingest"
	"ConsensusAnalyzer/internal/infrastructure/llm"
	"ConsensusAnalyzer/internal/infrastructure/scheduler"
	"ConsensusAnalyzer/internal/infrastructure/storage"
	"ConsensusAnalyzer/internal/infrastructure/telegram"
	"ConsensusAnalyzer/internal/logging"
	"ConsensusAnalyzer/internal/ports"
	"ConsensusAnalyzer/internal/usecase"
	"ConsensusAnalyzer/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	store        *aggregation.Store
	orchestrator *usecase.Orchestrator
	closers      []io.Closer
}

// Deps lets callers replace outer adapters; zero values use the configured ones.
type Deps struct {
	Logger    *slog.Logger
	Transport ports.CompletionTransport
	Output    io.Writer
	Retry     *completion.RetryPolicy
}

// New builds the application from configuration.
func New(ctx context.Context, cfg config.Config, deps Deps) (*Application, error) {
	baseLogger := deps.Logger
	if baseLogger == nil {
		// stdout carries published messages, so logs go to stderr
		baseLogger = logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	}
	out := deps.Output
	if out == nil {
		out = os.Stdout
	}

	transport := deps.Transport
	if transport == nil {
		if cfg.LLM.APIKey == "" {
			baseLogger.Warn("llm api key is empty; every completion will fail")
		}
		transport = llm.NewChatTransport(cfg.LLM, baseLogger.With("component", "llm"))
	}

	retry := completion.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       completion.ConstantDelay(cfg.Retry.Delay()),
	}
	if deps.Retry != nil {
		retry = *deps.Retry
	}
	completer := completion.NewClient(transport,
		completion.WithRetryPolicy(retry),
		completion.WithAttemptTimeout(cfg.LLM.Timeout()),
		completion.WithLogger(baseLogger.With("component", "completion")),
	)

	application := &Application{
		cfg:    cfg,
		logger: baseLogger,
		store:  aggregation.NewStore(aggregation.WithShards(cfg.Aggregation.Shards)),
	}

	var secondary []ports.ResultPublisher

	if cfg.Database.DSN != "" {
		repo, err := storage.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open report archive: %w", err)
		}
		application.closers = append(application.closers, repo)
		secondary = append(secondary, bus.NewArchivePublisher(repo))
	}

	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier, err := telegram.NewNotifier(tg.BotToken, tg.ChatID, baseLogger.With("component", "telegram"))
		if err != nil {
			_ = application.Close()
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		secondary = append(secondary, notifier)
	}

	application.orchestrator = usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Completer:          completer,
		Store:              application.store,
		Publisher:          bus.NewFanout(baseLogger.With("component", "publisher"), bus.NewLineSink(out), secondary...),
		MaxTranscriptChars: cfg.Analysis.MaxTranscriptChars,
		Logger:             baseLogger.With("component", "orchestrator"),
	})
	return application, nil
}

// Serve accepts events over HTTP and sweeps idle aggregations until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Aggregation.SweepEvery, logger.New(a.logger, "cron"))
	sweeper := usecase.NewSweeper(driver, a.store, a.cfg.Aggregation.TTL, a.logger.With("component", "sweeper"))
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer func() {
		if err := sweeper.Stop(context.Background()); err != nil {
			a.logger.Warn("sweeper stop failed", "error", err)
		}
	}()

	gateway := ingest.NewHTTPGateway(a.cfg.Ingest, a.logger.With("component", "ingest"))
	return a.consume(ctx, gateway)
}

// Replay processes newline-delimited events from r and returns at EOF.
func (a *Application) Replay(ctx context.Context, r io.Reader) error {
	gateway := ingest.NewLineGateway(r, a.logger.With("component", "replay"))
	if err := a.consume(ctx, gateway); err != nil {
		return err
	}
	if pending := a.store.Len(); pending > 0 {
		a.logger.Warn("replay finished with incomplete topics", "pending", pending)
	}
	return nil
}

func (a *Application) consume(ctx context.Context, gateway ports.IngestGateway) error {
	consumer := usecase.NewConsumer(gateway, a.orchestrator, a.cfg.Analysis.Workers, a.logger.With("component", "consumer"))
	return consumer.Run(ctx)
}

// Close releases adapters opened by New.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
