package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "rt:"
	lastPrefix    = "rt:last:"
)

// RedisHub fans values out over Redis pub/sub so every API instance sees
// every publish. The last value of each topic is kept under rt:last:<topic>.
type RedisHub struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisHub builds a Redis-backed hub.
func NewRedisHub(client *redis.Client, logger *slog.Logger) *RedisHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisHub{client: client, logger: logger}
}

func (h *RedisHub) Publish(ctx context.Context, topic string, value any) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}
	_, err = h.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, lastPrefix+topic, payload, 0)
		p.Publish(ctx, channelPrefix+topic, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, topic string, opts ...SubscribeOption) (<-chan []byte, func(), error) {
	cfg := subscribeOptions(opts)
	ps := h.client.Subscribe(ctx, channelPrefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	var last []byte
	if cfg.replay {
		var err error
		last, err = h.client.Get(ctx, lastPrefix+topic).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			ps.Close()
			return nil, nil, fmt.Errorf("read last %s: %w", topic, err)
		}
	}

	out := make(chan []byte, subscriberBuffer)
	done := make(chan struct{})
	if last != nil {
		out <- last
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				offer(out, []byte(msg.Payload))
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := ps.Close(); err != nil {
				h.logger.Debug("realtime unsubscribe", "topic", topic, "error", err)
			}
		})
	}
	return out, cancel, nil
}
