package eventbus

import (
	"sync"

	"courier-dispatch/internal/logx"
)

// defaultBuffer is the per-subscriber channel capacity.
const defaultBuffer = 32

// Subscriber is one attached consumer. All fields are guarded by the hub mutex.
type Subscriber struct {
	ch     chan Event
	topics map[string]struct{}
}

// C returns the receive side of the subscriber's event channel.
func (s *Subscriber) C() <-chan Event { return s.ch }

// Hub fans published events out to topic subscribers. Delivery is at-most-once:
// an event published to a subscriber with a full buffer is dropped.
type Hub struct {
	log logx.Logger

	mu     sync.Mutex
	topics map[string]map[*Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub(log logx.Logger) *Hub {
	return &Hub{
		log:    log,
		topics: make(map[string]map[*Subscriber]struct{}),
	}
}

// Attach registers a new subscriber with no topics yet.
func (h *Hub) Attach() *Subscriber {
	return &Subscriber{
		ch:     make(chan Event, defaultBuffer),
		topics: make(map[string]struct{}),
	}
}

// Subscribe adds the subscriber to a topic. Admission checks happen before this
// call; the hub itself trusts its callers.
func (h *Hub) Subscribe(s *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.topics[topic] = set
	}
	set[s] = struct{}{}
	s.topics[topic] = struct{}{}
}

// Unsubscribe removes the subscriber from a topic.
func (h *Hub) Unsubscribe(s *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(s, topic)
}

// Detach removes the subscriber from every topic. The subscriber's channel is
// left open: a publish snapshot taken concurrently may still send to it.
func (h *Hub) Detach(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range s.topics {
		h.drop(s, topic)
	}
}

func (h *Hub) drop(s *Subscriber, topic string) {
	if set, ok := h.topics[topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(s.topics, topic)
}

// Publish sends the event to every subscriber of its topic. The subscriber set
// is snapshotted under the lock; sends happen outside it and never block.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	set := h.topics[ev.Topic]
	snapshot := make([]*Subscriber, 0, len(set))
	for s := range set {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	dropped := 0
	for _, s := range snapshot {
		select {
		case s.ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("event dropped for slow subscribers",
			logx.String("topic", ev.Topic),
			logx.String("type", ev.Type),
			logx.Int("dropped", dropped),
		)
	}
}
