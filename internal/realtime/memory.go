package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 8

type memoryHub struct {
	mu   sync.Mutex
	last map[string][]byte
	subs map[string]map[int]chan []byte
	next int
}

// NewMemoryHub returns a process-local hub.
func NewMemoryHub() Hub {
	return &memoryHub{last: make(map[string][]byte), subs: make(map[string]map[int]chan []byte)}
}

func (h *memoryHub) Publish(_ context.Context, topic string, value any) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[topic] = payload
	for _, ch := range h.subs[topic] {
		offer(ch, payload)
	}
	return nil
}

func (h *memoryHub) Subscribe(_ context.Context, topic string, opts ...SubscribeOption) (<-chan []byte, func(), error) {
	cfg := subscribeOptions(opts)
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan []byte)
	}
	h.next++
	id := h.next
	h.subs[topic][id] = ch
	if last, ok := h.last[topic]; ok && cfg.replay {
		ch <- last
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// offer never blocks the publisher; a slow subscriber loses its oldest
// pending value, which a newer full value supersedes anyway.
func offer(ch chan []byte, payload []byte) {
	for {
		select {
		case ch <- payload:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
