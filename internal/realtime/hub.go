package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBufferSize = 64

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID     uuid.UUID
	filter Filter
	events chan Event
	missed chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Missed receives a value after the hub dropped at least one event for this
// subscription because its buffer was full. Pending signals coalesce, so a
// receiver should resynchronise from the source of truth on every value.
func (s *Subscription) Missed() <-chan struct{} {
	return s.missed
}

func (s *Subscription) markMissed() {
	select {
	case s.missed <- struct{}{}:
	default:
	}
}

// Hub fans change events out to in-process subscribers. Every subscription
// gets its own goroutine and bounded buffer, so one slow subscriber never
// blocks publishers or other subscribers.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	bufferSize int
	logger     zerolog.Logger
}

// NewHub creates an empty hub. A bufferSize below one uses the default.
func NewHub(bufferSize int, logger zerolog.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		subs:       make(map[uuid.UUID]*Subscription),
		bufferSize: bufferSize,
		logger:     logger.With().Str("component", "realtime-hub").Logger(),
	}
}

// Subscribe registers onEvent for events matching filter. Events are
// delivered in publish order.
func (h *Hub) Subscribe(filter Filter, onEvent func(Event)) *Subscription {
	sub := &Subscription{
		ID:     uuid.New(),
		filter: filter,
		events: make(chan Event, h.bufferSize),
		missed: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case e := <-sub.events:
				onEvent(e)
			}
		}
	}()

	h.logger.Debug().
		Str("subscription_id", sub.ID.String()).
		Str("table", filter.Table).
		Str("order_id", filter.OrderID.String()).
		Msg("subscription opened")

	return sub
}

// Unsubscribe stops delivery to sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()

	sub.stop()

	h.logger.Debug().Str("subscription_id", sub.ID.String()).Msg("subscription closed")
}

// Publish delivers the event to every matching subscription. A subscription
// whose buffer is full misses the event and is signalled on Missed.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		case <-sub.done:
		default:
			h.logger.Warn().
				Str("subscription_id", sub.ID.String()).
				Str("table", event.Table).
				Str("record_id", event.RecordID.String()).
				Msg("subscriber buffer full, dropping event")
			sub.markMissed()
		}
	}

	return nil
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close stops every open subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uuid.UUID]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	return nil
}
