package realtime

import (
	"context"
	"sync"
)

type Status struct {
	Status        string `json:"status"`
	DeclineReason string `json:"declineReason,omitempty"`
}

// Projector folds order events into local status state for a bounded set of
// tracked orders. Application is last-write-wins and idempotent, and events
// for untracked orders are ignored, so duplicate or stray deliveries are
// harmless.
type Projector struct {
	mu       sync.RWMutex
	tracked  map[uint]struct{}
	statuses map[uint]Status
}

func NewProjector(orderIDs ...uint) *Projector {
	p := &Projector{
		tracked:  make(map[uint]struct{}, len(orderIDs)),
		statuses: make(map[uint]Status),
	}
	for _, id := range orderIDs {
		p.tracked[id] = struct{}{}
	}
	return p
}

func (p *Projector) Track(orderID uint) {
	p.mu.Lock()
	p.tracked[orderID] = struct{}{}
	p.mu.Unlock()
}

// Seed installs a status snapshot fetched from the store, so a view has
// something to show before the first event arrives.
func (p *Projector) Seed(orderID uint, status Status) {
	p.mu.Lock()
	p.tracked[orderID] = struct{}{}
	p.statuses[orderID] = status
	p.mu.Unlock()
}

// SeedIfAbsent installs the snapshot only when no status is known yet and
// returns the effective status. A caller that tracks the order before
// fetching the snapshot cannot lose a change that lands during the fetch.
func (p *Projector) SeedIfAbsent(orderID uint, status Status) Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracked[orderID] = struct{}{}
	if current, ok := p.statuses[orderID]; ok {
		return current
	}
	p.statuses[orderID] = status
	return status
}

// Apply folds one event into local state and reports whether it was for a
// tracked order.
func (p *Projector) Apply(event Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.tracked[event.OrderID]; !ok {
		return false
	}
	p.statuses[event.OrderID] = Status{
		Status:        event.Status,
		DeclineReason: event.DeclineReason,
	}
	return true
}

func (p *Projector) Status(orderID uint) (Status, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status, ok := p.statuses[orderID]
	return status, ok
}

// Run consumes a subscription until it is closed or ctx is cancelled.
func (p *Projector) Run(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			p.Apply(event)
		}
	}
}
