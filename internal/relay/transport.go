package relay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

// Options tunes the transport. Zero values fall back to the defaults the
// admin console was designed around.
type Options struct {
	// FreshnessWindow bounds how long a message stays actionable. Older
	// messages are expired by every receiving path, even on first sight.
	FreshnessWindow time.Duration

	// PollInterval is the fallback buffer poll cadence.
	PollInterval time.Duration

	// CleanupDelay is how long after a broadcast the buffer prune pass runs.
	CleanupDelay time.Duration
}

// DefaultOptions returns the standard relay tuning.
func DefaultOptions() Options {
	return Options{
		FreshnessWindow: 60 * time.Second,
		PollInterval:    5 * time.Second,
		CleanupDelay:    5 * time.Second,
	}
}

// Transport relays reservation events between back-office instances over
// two redundant channels: a pub/sub bus (primary) and a shared bounded
// buffer (fallback) that is both change-signalled and polled.
//
// No single channel is reliable on its own: the bus drops messages for
// instances that are briefly disconnected, the buffer signal needs a live
// listener connection, and the poll only runs every few seconds. All three
// receive paths therefore run concurrently and race, and correctness of
// "at-most-once-observed" is pushed entirely onto the per-subscription
// dedup filter rather than onto the transport.
//
// A Transport is explicitly constructed and closed by whoever composes the
// application; there is no process-wide instance.
type Transport struct {
	id     string
	bus    Bus
	buffer Buffer
	opts   Options
	logger *logger.Logger

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

// NewTransport creates a transport. bus may be nil, in which case only the
// buffer paths operate.
func NewTransport(bus Bus, buffer Buffer, logger *logger.Logger, opts Options) *Transport {
	def := DefaultOptions()
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = def.FreshnessWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = def.CleanupDelay
	}

	return &Transport{
		id:     uuid.New().String(),
		bus:    bus,
		buffer: buffer,
		opts:   opts,
		logger: logger.WithComponent("relay-transport"),
		timers: make(map[*time.Timer]struct{}),
	}
}

// Broadcast relays msg to every other instance. Fire-and-forget: msg is
// stamped with a fresh ID and timestamp, published on the bus if one is
// attached, and unconditionally appended to the fallback buffer. Failures on
// either channel are logged, never escalated; a delayed prune pass keeps the
// buffer from accumulating stale entries. Returns the stamped message.
func (t *Transport) Broadcast(ctx context.Context, msg Message) Message {
	msg.ID = uuid.New().String()
	msg.Origin = t.id
	msg.Timestamp = time.Now()

	if t.bus != nil {
		if err := t.bus.Publish(msg); err != nil {
			t.logger.Warn("bus publish failed, relying on fallback buffer",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()))
		}
	}

	// Append to the buffer regardless of whether the bus publish succeeded:
	// the buffer is the redundant path, not the backup path.
	if err := t.buffer.Append(ctx, msg); err != nil {
		t.logger.Warn("buffer append failed",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()))
	}

	t.scheduleCleanup()
	publishedTotal.Inc()

	return msg
}

// Subscribe delivers relayed messages to cb, each logical message at most
// once, until the returned unsubscribe function is called. Unsubscribing
// tears down all three receive paths; no callback fires afterwards.
func (t *Transport) Subscribe(cb func(Message)) (func(), error) {
	filter := NewFilter(t.opts.FreshnessWindow)

	var stopped atomic.Bool

	deliver := func(msg Message, path string) {
		if stopped.Load() {
			return
		}
		// The browser channel this replaces never echoed a message back to
		// its producer; the shared buffer does, so filter own broadcasts out.
		if msg.Origin == t.id {
			return
		}
		if !filter.Admit(msg) {
			suppressedTotal.Inc()
			return
		}
		deliveredTotal.WithLabelValues(path).Inc()
		cb(msg)
	}

	drain := func(path string) {
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.PollInterval)
		defer cancel()

		msgs, err := t.buffer.Read(ctx)
		if err != nil {
			t.logger.Warn("buffer read failed", slog.String("path", path), slog.String("error", err.Error()))
			return
		}

		cutoff := time.Now().Add(-t.opts.FreshnessWindow)
		for _, msg := range msgs {
			if msg.Timestamp.Before(cutoff) {
				continue
			}
			deliver(msg, path)
		}
	}

	// Path A: bus listener.
	var busSub BusSubscription
	if t.bus != nil {
		sub, err := t.bus.Subscribe(func(msg Message) { deliver(msg, "bus") })
		if err != nil {
			// The buffer paths are independently sufficient; keep going.
			t.logger.Warn("bus subscribe failed, buffer paths only", slog.String("error", err.Error()))
		} else {
			busSub = sub
		}
	}

	// Path B: buffer change signal.
	stopWatch, err := t.buffer.Watch(func() { drain("signal") })
	if err != nil {
		t.logger.Warn("buffer watch failed, poll path only", slog.String("error", err.Error()))
		stopWatch = nil
	}

	// Path C: poll.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(t.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				drain("poll")
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			stopped.Store(true)
			if busSub != nil {
				if err := busSub.Unsubscribe(); err != nil {
					t.logger.Warn("bus unsubscribe failed", slog.String("error", err.Error()))
				}
			}
			if stopWatch != nil {
				stopWatch()
			}
			close(done)
		})
	}

	return unsubscribe, nil
}

// PruneExpired drops buffer entries older than the freshness window. The
// broadcast path schedules this automatically; the maintenance cron also
// calls it so abandoned entries do not outlive a quiet period.
func (t *Transport) PruneExpired(ctx context.Context) error {
	return t.buffer.Prune(ctx, time.Now().Add(-t.opts.FreshnessWindow))
}

// Close stops pending cleanup timers. Subscriptions are torn down by their
// own unsubscribe functions.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for timer := range t.timers {
		timer.Stop()
	}
	t.timers = make(map[*time.Timer]struct{})
}

func (t *Transport) scheduleCleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(t.opts.CleanupDelay, func() {
		t.mu.Lock()
		delete(t.timers, timer)
		t.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := t.PruneExpired(ctx); err != nil {
			t.logger.Warn("buffer prune failed", slog.String("error", err.Error()))
		}
	})
	t.timers[timer] = struct{}{}
}
