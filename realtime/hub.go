package realtime

import "sync"

// Event is one row-change notification for an order.
type Event struct {
	OrderID       uint   `json:"orderId"`
	Status        string `json:"status"`
	DeclineReason string `json:"declineReason,omitempty"`
}

const subscriptionBuffer = 16

// Subscription is a bounded stream of events for one view. It must be
// released with Hub.Unsubscribe when the view goes away.
type Subscription struct {
	ids    map[uint]struct{}
	events chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) wants(orderID uint) bool {
	if len(s.ids) == 0 {
		return true
	}
	_, ok := s.ids[orderID]
	return ok
}

// Hub fans order events out to live subscriptions. Delivery is fire and
// forget: publishing never blocks, and a subscriber that falls behind its
// buffer loses the oldest events rather than stalling the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a listener for the given order ids. With no ids the
// subscription receives every event (staff console view).
func (h *Hub) Subscribe(orderIDs ...uint) *Subscription {
	sub := &Subscription{
		ids:    make(map[uint]struct{}, len(orderIDs)),
		events: make(chan Event, subscriptionBuffer),
	}
	for _, id := range orderIDs {
		sub.ids[id] = struct{}{}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the listener and closes its channel. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.events)
}

func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if !sub.wants(event.OrderID) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			// Full buffer: evict the oldest event so a lagging
			// subscriber still ends up holding the latest status.
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- event:
			default:
			}
		}
	}
}
