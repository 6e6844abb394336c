package notify

import (
	"log/slog"
	"sync"
)

// Subscription is one subscriber's view of the hub. Events arrive on C
// until Cancel is called or the hub closes.
type Subscription struct {
	C      <-chan Event
	topics map[string]struct{}

	hub *Hub
	ch  chan Event
	id  uint64
}

// Cancel removes the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.hub.cancel(s)
}

func (s *Subscription) matches(topics []string) bool {
	for _, t := range topics {
		if _, ok := s.topics[t]; ok {
			return true
		}
	}
	return false
}

// Hub is an in-process publish/subscribe broker. Publish never blocks:
// subscribers with full buffers are skipped and a drop counter records it.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool

	logger *slog.Logger
	onDrop func()
}

// NewHub creates a Hub whose subscriber channels buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger.With("component", "notify"),
	}
}

// OnDrop registers a callback invoked whenever an event is dropped for a
// slow subscriber. Used to feed a metrics counter.
func (h *Hub) OnDrop(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = fn
}

// Subscribe registers interest in one or more topics. With no topics the
// subscriber receives everything.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	if len(topics) == 0 {
		topics = []string{TopicGlobal}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	sub := &Subscription{
		C:      ch,
		ch:     ch,
		hub:    h,
		id:     h.nextID,
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}
	h.nextID++

	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers an event to every matching subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	topics := ev.Topics()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if !sub.matches(topics) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("dropping event for slow subscriber", "type", ev.Type, "session", ev.Session)
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

func (h *Hub) cancel(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
}
