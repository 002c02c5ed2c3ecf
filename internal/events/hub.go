// Package events fans item change events out to live subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Prometheus metrics.
var (
	eventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_events_published_total",
			Help: "Total number of item events published to the hub",
		},
	)

	eventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_events_dropped_total",
			Help: "Total number of item events dropped for slow subscribers",
		},
	)

	eventsSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_events_subscribers",
			Help: "Number of active item event subscribers",
		},
	)
)

// Subscription is a single consumer of the hub.
type Subscription struct {
	id      uint64
	hub     *Hub
	ch      chan model.ItemEvent
	once    sync.Once
	dropped atomic.Uint64
}

// Events returns the channel on which events are delivered. It is closed
// when the subscription is cancelled or the hub is closed.
func (s *Subscription) Events() <-chan model.ItemEvent {
	return s.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close cancels the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

func (s *Subscription) closeChannel() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// Hub broadcasts item events to every subscriber without ever blocking the
// publisher. A subscriber whose buffer is full misses the event.
type Hub struct {
	logger     *zap.Logger
	bufferSize int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

// NewHub creates a new Hub. A bufferSize below 1 selects DefaultBufferSize.
func NewHub(logger *zap.Logger, bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[uint64]*Subscription),
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// a subscription whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:  h.nextID,
		hub: h,
		ch:  make(chan model.ItemEvent, h.bufferSize),
	}

	if h.closed {
		sub.closeChannel()
		return sub
	}

	h.subs[sub.id] = sub
	eventsSubscribers.Inc()

	return sub
}

// Notify implements store.Notifier.
func (h *Hub) Notify(event model.ItemEvent) {
	h.Publish(event)
}

// Publish delivers event to all current subscribers.
func (h *Hub) Publish(event model.ItemEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	eventsPublishedTotal.Inc()

	for _, sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
			eventsDroppedTotal.Inc()
			h.logger.Debug("dropping item event for slow subscriber",
				zap.Uint64("subscriber", sub.id),
				zap.String("type", string(event.Type)),
				zap.String("item_id", event.Item.ID),
			)
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription and rejects further publishing.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, sub := range h.subs {
		sub.closeChannel()
		delete(h.subs, id)
		eventsSubscribers.Dec()
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		eventsSubscribers.Dec()
	}
	sub.closeChannel()
}
