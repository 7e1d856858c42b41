package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ConsensusAnalyzer/internal/aggregation"
	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
	"ConsensusAnalyzer/internal/prompt"
	"ConsensusAnalyzer/internal/transcript"
)

const (
	failedAnalysisMessage  = "AI logic error"
	failedSynthesisMessage = "Final synthesis failed"
	completedMessage       = "Final report generated."
)

// AggregationStore is the only shared state the orchestrator touches.
type AggregationStore interface {
	Append(topic uuid.UUID, expected int, itemID string, partial domain.AnalysisResult, segments []domain.EvidenceSegment) (aggregation.Progress, error)
	Drain(topic uuid.UUID) (aggregation.Drained, bool)
	Seen(topic uuid.UUID, itemID string) bool
}

// OrchestratorDeps wires all driven adapters into the orchestrator.
type OrchestratorDeps struct {
	Completer          ports.Completer
	Store              AggregationStore
	Publisher          ports.ResultPublisher
	MaxTranscriptChars int
	Logger             *slog.Logger
}

// Orchestrator drives per-item analysis and the once-per-topic synthesis.
type Orchestrator struct {
	completer ports.Completer
	store     AggregationStore
	publisher ports.ResultPublisher
	budget    int
	logger    *slog.Logger
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	budget := deps.MaxTranscriptChars
	if budget <= 0 {
		budget = transcript.DefaultBudget
	}
	return &Orchestrator{
		completer: deps.Completer,
		store:     deps.Store,
		publisher: deps.Publisher,
		budget:    budget,
		logger:    logger,
	}
}

// ProcessPartial analyzes one source item, folds it into its topic and
// finalizes the topic once the store reports the declared quota reached.
// On failure the topic's aggregation is left in place so later items can
// still complete it.
func (o *Orchestrator) ProcessPartial(ctx context.Context, event domain.IngestEvent) error {
	if err := validateEvent(event); err != nil {
		o.logger.Warn("dropping invalid event", "topic", event.TopicID, "error", err)
		return err
	}

	log := o.logger.With("topic", event.TopicID, "video", event.VideoData.VideoID)
	log.Info("received source", "current", event.CurrentCount, "total", event.TotalVideos)

	if o.store.Seen(event.TopicID, event.VideoData.VideoID) {
		log.Info("duplicate source skipped before analysis")
		return nil
	}

	text := transcript.Bound(event.VideoData.Segments, o.budget)
	if text == "" {
		err := &ValidationError{TopicID: event.TopicID, Reason: "transcript has no text"}
		log.Warn("dropping invalid event", "error", err)
		return err
	}

	partial, err := o.completer.Complete(ctx, prompt.System(), prompt.Stage1(text))
	if err != nil {
		return o.fail(ctx, log, event.TopicID, "analysis", failedAnalysisMessage, err)
	}

	progress, err := o.store.Append(event.TopicID, event.TotalVideos, event.VideoData.VideoID, partial, toSegments(event.VideoData, partial.Highlights))
	if err != nil {
		return o.fail(ctx, log, event.TopicID, "aggregation", failedAnalysisMessage, err)
	}

	switch {
	case progress.Duplicate:
		log.Info("duplicate source ignored", "received", progress.Received, "expected", progress.Expected)
		return nil
	case !progress.Complete:
		o.publishStatus(ctx, event.TopicID, domain.StatusAnalyzing,
			fmt.Sprintf("Analyzed %d of %d sources...", progress.Received, progress.Expected))
		return nil
	default:
		return o.Finalize(ctx, event.TopicID)
	}
}

// Finalize drains the topic and publishes the cross-source synthesis. A caller
// that lost the drain race returns nil without doing anything. Drained state is
// never restored, so a failed synthesis is terminal for the topic.
func (o *Orchestrator) Finalize(ctx context.Context, topic uuid.UUID) error {
	drained, ok := o.store.Drain(topic)
	if !ok || len(drained.Partials) == 0 {
		return nil
	}

	log := o.logger.With("topic", topic)
	log.Info("all sources collected, synthesizing", "sources", len(drained.Partials))

	combined := combineContext(drained.Partials)
	final, err := o.completer.Complete(ctx, prompt.System(), prompt.Stage2(combined, len(drained.Partials)))
	if err != nil {
		return o.fail(ctx, log, topic, "synthesis", failedSynthesisMessage, err)
	}

	report := domain.FinalReport{
		TopicID:             topic,
		FinalSummary:        final.Summary,
		SentimentScore:      final.Sentiment,
		ConsensusPercentage: final.Consensus,
		CommonClaims:        joinClaims(final.Claims),
		Segments:            drained.Segments,
	}
	if err := o.publisher.PublishFinal(ctx, report); err != nil {
		return o.fail(ctx, log, topic, "publish", failedSynthesisMessage, err)
	}

	o.publishStatus(ctx, topic, domain.StatusCompleted, completedMessage)
	log.Info("final report published", "segments", len(report.Segments), "consensus", report.ConsensusPercentage)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, topic uuid.UUID, stage, message string, err error) error {
	log.Error(stage+" failed", "error", err)
	o.publishStatus(ctx, topic, domain.StatusFailed, message)
	return &ProcessingError{TopicID: topic, Stage: stage, Err: err}
}

func (o *Orchestrator) publishStatus(ctx context.Context, topic uuid.UUID, status domain.Status, message string) {
	err := o.publisher.PublishStatus(ctx, domain.StatusUpdate{TopicID: topic, Status: status, Message: message})
	if err != nil {
		o.logger.Error("publish status", "topic", topic, "status", status, "error", err)
	}
}

func validateEvent(event domain.IngestEvent) error {
	switch {
	case event.TopicID == uuid.Nil:
		return &ValidationError{TopicID: event.TopicID, Reason: "missing topic id"}
	case event.VideoData == nil:
		return &ValidationError{TopicID: event.TopicID, Reason: "missing video data"}
	case len(event.VideoData.Segments) == 0:
		return &ValidationError{TopicID: event.TopicID, Reason: "no transcript segments"}
	case event.TotalVideos <= 0:
		return &ValidationError{TopicID: event.TopicID, Reason: "total videos must be positive"}
	}
	return nil
}

func toSegments(video *domain.VideoData, highlights []domain.Highlight) []domain.EvidenceSegment {
	segments := make([]domain.EvidenceSegment, 0, len(highlights))
	for _, h := range highlights {
		segments = append(segments, domain.EvidenceSegment{
			VideoID:         video.VideoID,
			VideoTitle:      video.Title,
			VideoURL:        video.VideoURL,
			Timestamp:       h.Timestamp,
			BestExplanation: h.Explanation,
			SegmentSummary:  h.ShortSummary,
		})
	}
	return segments
}

func combineContext(partials []domain.AnalysisResult) string {
	blocks := make([]string, 0, len(partials))
	for _, p := range partials {
		blocks = append(blocks, "Source Summary: "+p.Summary+" | Claims: "+strings.Join(p.Claims, ", "))
	}
	return strings.Join(blocks, "\n---\n")
}

func joinClaims(claims []string) string {
	kept := make([]string, 0, len(claims))
	seen := make(map[string]struct{}, len(claims))
	for _, claim := range claims {
		claim = strings.TrimSpace(claim)
		key := strings.ToLower(claim)
		if claim == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, claim)
	}
	if len(kept) == 0 {
		return domain.FallbackClaims
	}
	return strings.Join(kept, ", ")
}
