package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/metrics"
)

const defaultBufferSize = 64

type memorySub struct {
	ch     chan Event
	topics []string
	once   sync.Once
}

// MemoryBroker delivers events within one process. Slow subscribers drop
// events rather than block publishers.
type MemoryBroker struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker(log *zap.Logger, m *metrics.Metrics) *MemoryBroker {
	return &MemoryBroker{
		log:     log,
		metrics: m,
		subs:    make(map[string]map[*memorySub]struct{}),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs[topic] {
		select {
		case s.ch <- e:
		default:
			b.log.Warn("dropped event for slow subscriber",
				zap.String("topic", topic), zap.String("type", e.Type))
		}
	}
	b.metrics.ObserveEvent("publish", e.Type)
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topics ...string) (<-chan Event, func(), error) {
	s := &memorySub{ch: make(chan Event, defaultBufferSize), topics: topics}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[*memorySub]struct{})
		}
		b.subs[t][s] = struct{}{}
	}
	b.mu.Unlock()

	stop := make(chan struct{})
	cancel := func() {
		s.once.Do(func() {
			close(stop)
			b.remove(s)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()

	return s.ch, cancel, nil
}

func (b *MemoryBroker) remove(s *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range s.topics {
		delete(b.subs[t], s)
		if len(b.subs[t]) == 0 {
			delete(b.subs, t)
		}
	}
	if !b.closed {
		close(s.ch)
	}
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	seen := make(map[*memorySub]struct{})
	for _, subs := range b.subs {
		for s := range subs {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			close(s.ch)
		}
	}
	b.subs = make(map[string]map[*memorySub]struct{})
	return nil
}
