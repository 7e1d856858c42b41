package bus

import (
	"context"
	"fmt"
	"log/slog"

	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

// Fanout delivers to a primary publisher and then to best-effort secondaries.
// Only a primary failure is returned; secondary failures are logged, so a
// flaky mirror never turns an already published report into a failure.
type Fanout struct {
	primary   ports.ResultPublisher
	secondary []ports.ResultPublisher
	logger    *slog.Logger
}

var _ ports.ResultPublisher = (*Fanout)(nil)

// NewFanout skips nil secondaries.
func NewFanout(logger *slog.Logger, primary ports.ResultPublisher, secondary ...ports.ResultPublisher) *Fanout {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kept := make([]ports.ResultPublisher, 0, len(secondary))
	for _, p := range secondary {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Fanout{primary: primary, secondary: kept, logger: logger}
}

func (f *Fanout) PublishStatus(ctx context.Context, update domain.StatusUpdate) error {
	if err := f.primary.PublishStatus(ctx, update); err != nil {
		return fmt.Errorf("primary publisher: %w", err)
	}
	for i, p := range f.secondary {
		if err := p.PublishStatus(ctx, update); err != nil {
			f.logger.Warn("secondary status delivery failed", "publisher", i, "topic", update.TopicID, "status", update.Status, "error", err)
		}
	}
	return nil
}

func (f *Fanout) PublishFinal(ctx context.Context, report domain.FinalReport) error {
	if err := f.primary.PublishFinal(ctx, report); err != nil {
		return fmt.Errorf("primary publisher: %w", err)
	}
	for i, p := range f.secondary {
		if err := p.PublishFinal(ctx, report); err != nil {
			f.logger.Warn("secondary report delivery failed", "publisher", i, "topic", report.TopicID, "error", err)
		}
	}
	return nil
}

// ArchivePublisher stores final reports and ignores status updates.
type ArchivePublisher struct {
	archive ports.ReportArchive
}

var _ ports.ResultPublisher = (*ArchivePublisher)(nil)

func NewArchivePublisher(archive ports.ReportArchive) *ArchivePublisher {
	return &ArchivePublisher{archive: archive}
}

func (a *ArchivePublisher) PublishStatus(context.Context, domain.StatusUpdate) error {
	return nil
}

func (a *ArchivePublisher) PublishFinal(ctx context.Context, report domain.FinalReport) error {
	if err := a.archive.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	return nil
}
