// Package realtime delivers the latest value of a topic to subscribers. Every
// message is the complete current value, never a diff, so a subscriber that
// misses an update only ever sees a newer full state.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

const (
	TopicSettings   = "settings"
	TopicAdminQueue = "admin:queue"
)

// AccountTopic carries snapshots of one account after every ledger mutation.
func AccountTopic(accountID string) string {
	return "account:" + accountID
}

// SessionTopic carries sign-in and sign-out events for a user.
func SessionTopic(userID string) string {
	return "session:" + userID
}

// Hub publishes values and streams them to subscribers. Subscribe delivers the
// last published value first, when there is one, unless WithoutReplay is set.
type Hub interface {
	Publish(ctx context.Context, topic string, value any) error
	Subscribe(ctx context.Context, topic string, opts ...SubscribeOption) (<-chan []byte, func(), error)
}

type subscribeConfig struct {
	replay bool
}

// SubscribeOption adjusts a single subscription.
type SubscribeOption func(*subscribeConfig)

// WithoutReplay skips the last published value and delivers only later publishes.
func WithoutReplay() SubscribeOption {
	return func(c *subscribeConfig) { c.replay = false }
}

func subscribeOptions(opts []SubscribeOption) subscribeConfig {
	cfg := subscribeConfig{replay: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Loader reads the current value of a topic from its source of truth.
type Loader func(ctx context.Context) (any, error)

// Follow streams the value returned by load, then every value published after
// the subscription was opened. The first message exists even when nothing has
// been published on the topic yet. A nil load falls back to replaying the last
// published value.
func Follow(ctx context.Context, hub Hub, topic string, load Loader) (<-chan []byte, func(), error) {
	if load == nil {
		return hub.Subscribe(ctx, topic)
	}
	live, cancelLive, err := hub.Subscribe(ctx, topic, WithoutReplay())
	if err != nil {
		return nil, nil, err
	}
	value, err := load(ctx)
	if err != nil {
		cancelLive()
		return nil, nil, err
	}
	first, err := encode(value)
	if err != nil {
		cancelLive()
		return nil, nil, err
	}

	out := make(chan []byte, subscriberBuffer)
	out <- first
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case payload, ok := <-live:
				if !ok {
					return
				}
				offer(out, payload)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelLive()
		})
	}
	return out, cancel, nil
}

func encode(value any) ([]byte, error) {
	if raw, ok := value.([]byte); ok {
		return raw, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode realtime value: %w", err)
	}
	return b, nil
}
