package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsensusAnalyzer/internal/ports"
)

const validReply = `{"summary":"ok","sentiment":0.7,"consensus":0,"claims":["a"],"highlights":[{"videoId":"v1","timestamp":"01:10","explanation":"e","shortSummary":"s"}]}`

type scriptedTransport struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	seen    [][]ports.Message
}

type reply struct {
	content string
	err     error
}

func (s *scriptedTransport) Chat(_ context.Context, messages []ports.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	s.seen = append(s.seen, messages)
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	r := s.replies[idx]
	return r.content, r.err
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func newTestClient(tr ports.CompletionTransport, rec *sleepRecorder) *Client {
	return NewClient(tr, WithRetryPolicy(RetryPolicy{
		MaxAttempts: 3,
		Delay:       ConstantDelay(30 * time.Second),
		Sleep:       rec.sleep,
	}))
}

func TestCompleteFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{replies: []reply{{content: validReply}}}
	rec := &sleepRecorder{}

	got, err := newTestClient(tr, rec).Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Summary)
	assert.Equal(t, 1, tr.calls)
	assert.Empty(t, rec.delays)

	require.Len(t, tr.seen[0], 2)
	assert.Equal(t, ports.Message{Role: "system", Content: "sys"}, tr.seen[0][0])
	assert.Equal(t, ports.Message{Role: "user", Content: "user"}, tr.seen[0][1])
}

func TestCompleteRecoversOnThirdAttempt(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{replies: []reply{
		{err: errors.New("connection reset")},
		{content: "I cannot help with that"},
		{content: "```json\n" + validReply + "\n```"},
	}}
	rec := &sleepRecorder{}

	got, err := newTestClient(tr, rec).Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.Sentiment)
	assert.Equal(t, 3, tr.calls)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, rec.delays)
}

func TestCompleteStopsAfterFirstSuccess(t *testing.T) {
	t.Parallel()

	for successAt := 1; successAt <= 5; successAt++ {
		replies := make([]reply, 0, successAt)
		for i := 1; i < successAt; i++ {
			replies = append(replies, reply{content: ""})
		}
		replies = append(replies, reply{content: validReply})
		tr := &scriptedTransport{replies: replies}
		rec := &sleepRecorder{}

		_, err := newTestClient(tr, rec).Complete(context.Background(), "s", "u")
		wantCalls := min(3, successAt)
		assert.Equal(t, wantCalls, tr.calls, "success at %d", successAt)
		assert.Len(t, rec.delays, wantCalls-1, "no delay after the final attempt")
		if successAt <= 3 {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
		}
	}
}

func TestCompleteExhaustsAttempts(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{replies: []reply{{err: errors.New("503 service unavailable")}}}
	rec := &sleepRecorder{}

	_, err := newTestClient(tr, rec).Complete(context.Background(), "s", "u")
	require.Error(t, err)

	var aiErr *AIProcessingError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, 3, aiErr.Attempts)
	assert.Contains(t, aiErr.Error(), "503 service unavailable")
	assert.Equal(t, 3, tr.calls)
	assert.Len(t, rec.delays, 2)
}

func TestCompleteCarriesLastCause(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{replies: []reply{
		{err: errors.New("boom")},
		{content: "   "},
		{content: `{"summary": "x", "sentiment": 0.4, "mood": "sunny"}`},
	}}
	_, err := newTestClient(tr, &sleepRecorder{}).Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCompleteAbortsWhenWaitIsCancelled(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{replies: []reply{{content: ""}}}
	client := NewClient(tr, WithRetryPolicy(RetryPolicy{
		MaxAttempts: 3,
		Delay:       ConstantDelay(time.Hour),
		Sleep:       SleepContext,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, tr.calls)
}

type blockingTransport struct{}

func (blockingTransport) Chat(ctx context.Context, _ []ports.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCompleteAppliesAttemptTimeout(t *testing.T) {
	t.Parallel()

	client := NewClient(blockingTransport{},
		WithAttemptTimeout(10*time.Millisecond),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 2, Delay: ConstantDelay(0), Sleep: SleepContext}),
	)

	_, err := client.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleteWithoutTransport(t *testing.T) {
	t.Parallel()

	_, err := NewClient(nil).Complete(context.Background(), "s", "u")
	var aiErr *AIProcessingError
	assert.ErrorAs(t, err, &aiErr)
}
