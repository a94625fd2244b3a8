package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/metrics"
)

// RedisConfig holds configuration for RedisBroker.
type RedisConfig struct {
	Prefix          string
	PublishTimeout  time.Duration
	EventBufferSize int
}

// DefaultRedisConfig returns default configuration values.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:          "ghnotify:",
		PublishTimeout:  5 * time.Second,
		EventBufferSize: defaultBufferSize,
	}
}

// RedisBroker implements Broker over Redis pub/sub so every server
// instance sees every event.
type RedisBroker struct {
	rdb     *redis.Client
	log     *zap.Logger
	metrics *metrics.Metrics
	config  RedisConfig

	wg sync.WaitGroup
}

// NewRedisBroker creates a RedisBroker.
func NewRedisBroker(rdb *redis.Client, log *zap.Logger, m *metrics.Metrics, cfg ...RedisConfig) *RedisBroker {
	config := DefaultRedisConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &RedisBroker{rdb: rdb, log: log, metrics: m, config: config}
}

func (b *RedisBroker) channel(topic string) string {
	return b.config.Prefix + topic
}

// Publish sends e to every subscriber of topic on any instance.
func (b *RedisBroker) Publish(ctx context.Context, topic string, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.PublishTimeout)
	defer cancel()

	if err := b.rdb.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		b.metrics.ObserveEvent("publish_error", e.Type)
		return fmt.Errorf("redis publish: %w", err)
	}

	b.metrics.ObserveEvent("publish", e.Type)
	return nil
}

// Subscribe listens on topics until cancel is called or ctx ends.
func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (<-chan Event, func(), error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = b.channel(t)
	}

	pubsub := b.rdb.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so no event published right
	// after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, b.config.EventBufferSize)

	b.wg.Add(1)
	go b.forward(subCtx, pubsub, events)

	return events, cancel, nil
}

func (b *RedisBroker) forward(ctx context.Context, pubsub *redis.PubSub, events chan<- Event) {
	defer b.wg.Done()
	defer close(events)
	defer func() {
		if err := pubsub.Close(); err != nil {
			b.log.Warn("closing pubsub", zap.Error(err))
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.Warn("failed to unmarshal event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}

			select {
			case events <- e:
				b.metrics.ObserveEvent("receive", e.Type)
			default:
				b.log.Warn("dropped event due to full channel", zap.String("channel", msg.Channel))
			}
		}
	}
}

// Close waits for subscriptions to end. Callers cancel their
// subscriptions first.
func (b *RedisBroker) Close() error {
	b.wg.Wait()
	return nil
}
