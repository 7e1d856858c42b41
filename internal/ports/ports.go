package ports

import (
	"context"

	"ConsensusAnalyzer/internal/domain"
)

// Message is a single chat turn sent to the text-generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionTransport performs one raw chat-completion call and returns the
// first choice's content.
type CompletionTransport interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Completer produces a decoded analysis for a system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (domain.AnalysisResult, error)
}

// ResultPublisher accepts progress and final-report messages.
type ResultPublisher interface {
	PublishStatus(ctx context.Context, update domain.StatusUpdate) error
	PublishFinal(ctx context.Context, report domain.FinalReport) error
}

// ReportArchive keeps published final reports for later lookup.
type ReportArchive interface {
	SaveReport(ctx context.Context, report domain.FinalReport) error
}

// EventHandler consumes one ingest event.
type EventHandler func(ctx context.Context, event domain.IngestEvent)

// IngestGateway delivers ingest events one at a time until ctx ends or the
// source is exhausted.
type IngestGateway interface {
	Run(ctx context.Context, handle EventHandler) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
