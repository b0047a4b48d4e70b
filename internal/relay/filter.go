package relay

import (
	"sync"
	"time"
)

// Filter admits each logical message at most once and rejects stale
// messages. One Filter is scoped to one subscription: the three delivery
// paths (bus, buffer signal, poll) race freely and the filter is what makes
// the race safe.
//
// The admitted set is unbounded for the life of the subscription. That is
// acceptable here: subscriptions live as long as the process, and the clinic
// produces at most a few hundred reservation events a day.
type Filter struct {
	mu       sync.Mutex
	admitted map[string]struct{}
	window   time.Duration

	now func() time.Time // overridable in tests
}

// NewFilter creates a filter with the given freshness window.
func NewFilter(window time.Duration) *Filter {
	return &Filter{
		admitted: make(map[string]struct{}),
		window:   window,
		now:      time.Now,
	}
}

// Admit reports whether msg should be surfaced to the subscriber.
// Already-seen keys are rejected. Messages older than the freshness window
// are rejected without being recorded as seen: expired is not the same as
// observed.
func (f *Filter) Admit(msg Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := msg.Key()
	if _, seen := f.admitted[key]; seen {
		return false
	}

	if f.now().Sub(msg.Timestamp) > f.window {
		return false
	}

	f.admitted[key] = struct{}{}
	return true
}

// Size returns the number of admitted keys.
func (f *Filter) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.admitted)
}
