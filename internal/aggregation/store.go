// Package aggregation holds in-flight topic aggregations in memory.
//
// The store is sharded by topic id; every operation locks exactly one shard,
// so slow work on one topic never blocks another shard. Callers only ever see
// topic ids and copies: the aggregation itself never leaves the store.
package aggregation

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"ConsensusAnalyzer/internal/domain"
)

const defaultShards = 32

// ErrInvalidQuota is returned when a topic is declared with a non-positive total.
var ErrInvalidQuota = errors.New("expected count must be positive")

// Progress reports the state of a topic right after an append.
type Progress struct {
	Received  int
	Expected  int
	Complete  bool
	Duplicate bool
}

// Drained is the full content of a topic removed by Drain.
type Drained struct {
	Expected int
	Partials []domain.AnalysisResult
	Segments []domain.EvidenceSegment
}

type topicAggregation struct {
	expected  int
	received  int
	partials  []domain.AnalysisResult
	segments  []domain.EvidenceSegment
	items     map[string]struct{}
	updatedAt time.Time
}

type shard struct {
	mu     sync.Mutex
	topics map[uuid.UUID]*topicAggregation
	// drained topics, kept until EvictStale so late redeliveries stay duplicates
	finalized map[uuid.UUID]finalizedTopic
}

type finalizedTopic struct {
	expected  int
	drainedAt time.Time
}

// Store is a sharded, concurrency-safe accumulator of partial results.
type Store struct {
	shards []*shard
	clock  func() time.Time
}

// Option customizes store construction.
type Option func(*Store)

// WithShards sets the number of independently locked shards.
func WithShards(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

// WithClock lets tests control the idle timestamps used for eviction.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		shards: newShards(defaultShards),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func newShards(n int) []*shard {
	out := make([]*shard, n)
	for i := range out {
		out[i] = &shard{
			topics:    map[uuid.UUID]*topicAggregation{},
			finalized: map[uuid.UUID]finalizedTopic{},
		}
	}
	return out
}

func (s *Store) shardFor(topic uuid.UUID) *shard {
	h := fnv.New32a()
	_, _ = h.Write(topic[:])
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Append records one partial for topic, creating the aggregation on first use.
// The first positive expected count declared for a topic wins. Completion is
// decided solely by the store's own received counter, so exactly one append
// per aggregation reports Complete. Re-deliveries of an already appended
// itemID, and any append to a topic that was already drained, are reported as
// Duplicate and change nothing.
func (s *Store) Append(topic uuid.UUID, expected int, itemID string, partial domain.AnalysisResult, segments []domain.EvidenceSegment) (Progress, error) {
	if expected <= 0 {
		return Progress{}, fmt.Errorf("append topic %s: %w", topic, ErrInvalidQuota)
	}

	sh := s.shardFor(topic)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if done, drained := sh.finalized[topic]; drained {
		return Progress{Received: done.expected, Expected: done.expected, Duplicate: true}, nil
	}

	agg, ok := sh.topics[topic]
	if !ok {
		agg = &topicAggregation{expected: expected, items: map[string]struct{}{}}
		sh.topics[topic] = agg
	}

	if itemID != "" {
		if _, seen := agg.items[itemID]; seen {
			return Progress{Received: agg.received, Expected: agg.expected, Duplicate: true}, nil
		}
		agg.items[itemID] = struct{}{}
	}

	agg.partials = append(agg.partials, partial)
	agg.segments = append(agg.segments, segments...)
	agg.received++
	agg.updatedAt = s.clock()

	return Progress{
		Received: agg.received,
		Expected: agg.expected,
		Complete: agg.received == agg.expected,
	}, nil
}

// Seen reports whether itemID was already appended to topic or the topic was
// already drained. It lets callers skip expensive work for redeliveries.
func (s *Store) Seen(topic uuid.UUID, itemID string) bool {
	sh := s.shardFor(topic)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, drained := sh.finalized[topic]; drained {
		return true
	}
	agg, ok := sh.topics[topic]
	if !ok || itemID == "" {
		return false
	}
	_, seen := agg.items[itemID]
	return seen
}

// Drain atomically removes and returns the aggregation for topic. Only one
// caller can win; every other caller gets false. The topic stays marked as
// finalized until EvictStale forgets it.
func (s *Store) Drain(topic uuid.UUID) (Drained, bool) {
	sh := s.shardFor(topic)
	sh.mu.Lock()
	agg, ok := sh.topics[topic]
	if ok {
		delete(sh.topics, topic)
		sh.finalized[topic] = finalizedTopic{expected: agg.expected, drainedAt: s.clock()}
	}
	sh.mu.Unlock()

	if !ok {
		return Drained{}, false
	}
	return Drained{
		Expected: agg.expected,
		Partials: agg.partials,
		Segments: agg.segments,
	}, true
}

// Pending reports counters of a topic still held by the store.
func (s *Store) Pending(topic uuid.UUID) (received, expected int, ok bool) {
	sh := s.shardFor(topic)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	agg, ok := sh.topics[topic]
	if !ok {
		return 0, 0, false
	}
	return agg.received, agg.expected, true
}

// EvictStale drops aggregations not touched since cutoff and returns their ids.
// Finalized markers drained before cutoff are forgotten as well.
func (s *Store) EvictStale(cutoff time.Time) []uuid.UUID {
	var evicted []uuid.UUID
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, agg := range sh.topics {
			if agg.updatedAt.Before(cutoff) {
				delete(sh.topics, id)
				evicted = append(evicted, id)
			}
		}
		for id, done := range sh.finalized {
			if done.drainedAt.Before(cutoff) {
				delete(sh.finalized, id)
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Len counts the aggregations currently held; finalized markers are not counted.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.topics)
		sh.mu.Unlock()
	}
	return total
}
