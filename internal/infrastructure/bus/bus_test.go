package bus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsensusAnalyzer/internal/domain"
)

func TestLineSinkWritesEnvelopes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewLineSink(&buf)
	topic := uuid.New()
	ctx := context.Background()

	require.NoError(t, sink.PublishStatus(ctx, domain.StatusUpdate{TopicID: topic, Status: domain.StatusAnalyzing, Message: "Analyzed 1 of 2 sources..."}))
	require.NoError(t, sink.PublishFinal(ctx, domain.FinalReport{TopicID: topic, FinalSummary: "done", CommonClaims: domain.FallbackClaims}))

	scanner := bufio.NewScanner(&buf)
	var envelopes []Envelope
	for scanner.Scan() {
		var env Envelope
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &env))
		envelopes = append(envelopes, env)
	}
	require.Len(t, envelopes, 2)

	assert.Equal(t, StatusTopic, envelopes[0].Topic)
	assert.Equal(t, topic.String(), envelopes[0].Key)
	var status domain.StatusUpdate
	require.NoError(t, json.Unmarshal(envelopes[0].Payload, &status))
	assert.Equal(t, domain.StatusAnalyzing, status.Status)

	assert.Equal(t, FinalTopic, envelopes[1].Topic)
	var report domain.FinalReport
	require.NoError(t, json.Unmarshal(envelopes[1].Payload, &report))
	assert.Equal(t, "done", report.FinalSummary)
}

func TestLineSinkConcurrentWritesStayWhole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewLineSink(&buf)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.PublishStatus(context.Background(), domain.StatusUpdate{TopicID: uuid.New(), Status: domain.StatusAnalyzing})
		}()
	}
	wg.Wait()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.True(t, json.Valid(line))
	}
}

type stubPublisher struct {
	statuses int
	finals   int
	err      error
}

func (s *stubPublisher) PublishStatus(context.Context, domain.StatusUpdate) error {
	s.statuses++
	return s.err
}

func (s *stubPublisher) PublishFinal(context.Context, domain.FinalReport) error {
	s.finals++
	return s.err
}

func TestFanoutSecondaryFailuresAreBestEffort(t *testing.T) {
	t.Parallel()

	primary := &stubPublisher{}
	failing := &stubPublisher{err: errors.New("telegram down")}
	healthy := &stubPublisher{}
	fan := NewFanout(nil, primary, failing, nil, healthy)

	assert.NoError(t, fan.PublishFinal(context.Background(), domain.FinalReport{}))
	assert.NoError(t, fan.PublishStatus(context.Background(), domain.StatusUpdate{}))
	assert.Equal(t, 1, primary.finals)
	assert.Equal(t, 1, failing.finals)
	assert.Equal(t, 1, healthy.finals)
	assert.Equal(t, 1, healthy.statuses)
}

func TestFanoutPrimaryFailureStopsDelivery(t *testing.T) {
	t.Parallel()

	boom := errors.New("stdout closed")
	primary := &stubPublisher{err: boom}
	secondary := &stubPublisher{}
	fan := NewFanout(nil, primary, secondary)

	assert.ErrorIs(t, fan.PublishFinal(context.Background(), domain.FinalReport{}), boom)
	assert.ErrorIs(t, fan.PublishStatus(context.Background(), domain.StatusUpdate{}), boom)
	assert.Equal(t, 0, secondary.finals, "report is not mirrored when the primary did not get it")
	assert.Equal(t, 0, secondary.statuses)
}

type memoryArchive struct {
	saved []domain.FinalReport
	err   error
}

func (m *memoryArchive) SaveReport(_ context.Context, report domain.FinalReport) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, report)
	return nil
}

func TestArchivePublisher(t *testing.T) {
	t.Parallel()

	archive := &memoryArchive{}
	pub := NewArchivePublisher(archive)
	require.NoError(t, pub.PublishStatus(context.Background(), domain.StatusUpdate{Status: domain.StatusFailed}))
	require.NoError(t, pub.PublishFinal(context.Background(), domain.FinalReport{FinalSummary: "kept"}))
	require.Len(t, archive.saved, 1)
	assert.Equal(t, "kept", archive.saved[0].FinalSummary)

	archive.err = errors.New("disk full")
	assert.ErrorContains(t, pub.PublishFinal(context.Background(), domain.FinalReport{}), "disk full")
}
