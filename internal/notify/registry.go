package notify

import (
	"sync"

	"github.com/rainwatch/rain-monitor/internal/metrics"
)

// Registry is a concurrency-safe set of push subscriptions keyed by the
// descriptor's content hash. Repeated subscribes with an identical descriptor
// are idempotent, and removal of a non-member is a no-op. Registrations are
// in-memory only and do not survive a restart.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]Subscription)}
}

// Add registers a subscription.
func (r *Registry) Add(sub Subscription) {
	r.mu.Lock()
	r.subs[sub.Key()] = sub
	metrics.Subscribers.Set(float64(len(r.subs)))
	r.mu.Unlock()
}

// Remove deletes the subscription structurally equal to sub, if present.
func (r *Registry) Remove(sub Subscription) {
	r.mu.Lock()
	delete(r.subs, sub.Key())
	metrics.Subscribers.Set(float64(len(r.subs)))
	r.mu.Unlock()
}

// Snapshot returns a copy of the current members for iteration. Mutations
// during a fan-out in progress never affect an already-taken snapshot.
func (r *Registry) Snapshot() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	output := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		output = append(output, sub)
	}
	return output
}

// Len returns the current number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
