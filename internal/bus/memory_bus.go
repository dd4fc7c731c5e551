// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
)

const (
	defaultBuffer = 16
	dropLogEvery  = 100
)

var dropCount atomic.Uint64

// ErrClosed is returned by Subscribe after the bus has been closed.
var ErrClosed = errors.New("bus closed")

// MemoryBus is an in-memory pub/sub. It is not durable; a publish blocks
// until every current subscriber accepted the message or ctx is done.
type MemoryBus[T any] struct {
	mu     sync.RWMutex
	subs   map[Topic][]*memSub[T]
	buffer int
	closed bool
}

// NewMemoryBus returns a bus whose subscriptions buffer up to buffer messages.
func NewMemoryBus[T any](buffer int) *MemoryBus[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryBus[T]{subs: make(map[Topic][]*memSub[T]), buffer: buffer}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

// Publish delivers msg to every subscriber of topic. Subscribers closing
// concurrently are skipped.
func (b *MemoryBus[T]) Publish(ctx context.Context, topic Topic, msg T) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs[topic] {
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			metrics.IncBusDropReason(string(topic), reason)
			if count := dropCount.Add(1); count%dropLogEvery == 0 {
				log.L().Warn().
					Str(log.FieldTopic, string(topic)).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	return nil
}

// Subscribe registers a new subscription on topic.
func (b *MemoryBus[T]) Subscribe(_ context.Context, topic Topic) (Subscriber[T], error) {
	s := &memSub[T]{
		b:     b,
		topic: topic,
		ch:    make(chan T, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.subs[topic] = append(b.subs[topic], s)
	return s, nil
}

// Close closes every subscription and rejects new ones.
func (b *MemoryBus[T]) Close() error {
	b.mu.Lock()
	var all []*memSub[T]
	for _, lst := range b.subs {
		all = append(all, lst...)
	}
	b.closed = true
	b.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	return nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus[T]) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memSub[T any] struct {
	b     *MemoryBus[T]
	topic Topic
	ch    chan T
	done  chan struct{}
	once  sync.Once
}

func (s *memSub[T]) C() <-chan T {
	return s.ch
}

func (s *memSub[T]) Close() error {
	s.once.Do(func() {
		// Release publishers blocked on this subscription before taking the write lock.
		close(s.done)

		s.b.mu.Lock()
		defer s.b.mu.Unlock()

		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		close(s.ch)
	})
	return nil
}

// Ensure compliance
var _ Bus[struct{}] = (*MemoryBus[struct{}])(nil)
