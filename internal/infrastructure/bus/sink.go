// Package bus holds the outbound ResultPublisher implementations.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

// Topic names match the downstream consumers' subscriptions.
const (
	StatusTopic = "topic-status-updates"
	FinalTopic  = "analysis-completed-events"
)

// Envelope is one line written by LineSink.
type Envelope struct {
	Topic   string          `json:"topic"`
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

// LineSink writes every published message as one JSON envelope per line.
type LineSink struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.ResultPublisher = (*LineSink)(nil)

// NewLineSink writes to out; callers own its lifetime.
func NewLineSink(out io.Writer) *LineSink {
	return &LineSink{out: out}
}

// PublishStatus emits a status update keyed by topic id.
func (s *LineSink) PublishStatus(ctx context.Context, update domain.StatusUpdate) error {
	return s.write(ctx, StatusTopic, update.TopicID.String(), update)
}

// PublishFinal emits a final report keyed by topic id.
func (s *LineSink) PublishFinal(ctx context.Context, report domain.FinalReport) error {
	return s.write(ctx, FinalTopic, report.TopicID.String(), report)
}

func (s *LineSink) write(ctx context.Context, topic, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	line, err := json.Marshal(Envelope{Topic: topic, Key: key, Payload: raw})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}
