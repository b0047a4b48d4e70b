package relay

import (
	"context"
	"time"
)

// Buffer is the shared persisted fallback path: a small bounded log every
// instance appends to and reads back, sized so that a handful of recent
// events survive a missed bus delivery. Entries expire after the freshness
// window; capacity eviction drops the oldest entry first.
type Buffer interface {
	// Append stores msg, evicting the oldest entry when the buffer is full.
	Append(ctx context.Context, msg Message) error

	// Read returns the buffered messages in append order.
	Read(ctx context.Context) ([]Message, error)

	// Prune drops entries with a timestamp before olderThan.
	Prune(ctx context.Context, olderThan time.Time) error

	// Watch invokes signal whenever the buffer changes, until the returned
	// stop function is called. The signal carries no payload; watchers
	// re-read the buffer and let the dedup filter sort out what is new.
	Watch(signal func()) (stop func(), err error)
}
