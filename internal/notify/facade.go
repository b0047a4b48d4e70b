package notify

import (
	"context"
	"log/slog"

	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/relay"
)

// Notifier is the single call surface for "a reservation event happened".
// It records the event in the local inbox, fans it out to the other
// back-office instances and, best-effort, shows a desktop toast on attached
// consoles.
//
// The three effects are independent: a failure in any one is logged and
// never blocks the others, and nothing is rolled back. This is deliberate
// fan-out, not a transaction.
type Notifier struct {
	store     *Store
	transport *relay.Transport
	desktop   DesktopNotifier // may be nil
	logger    *logger.Logger

	unsubscribe func()
}

// NewNotifier creates the facade. desktop may be nil when no console hub is
// attached.
func NewNotifier(store *Store, transport *relay.Transport, desktop DesktopNotifier, logger *logger.Logger) *Notifier {
	return &Notifier{
		store:     store,
		transport: transport,
		desktop:   desktop,
		logger:    logger.WithComponent("notifier"),
	}
}

// Start subscribes to the relay so events produced on other instances land
// in this inbox too. Call Stop on shutdown.
func (n *Notifier) Start() error {
	unsubscribe, err := n.transport.Subscribe(n.handleRelayed)
	if err != nil {
		return err
	}
	n.unsubscribe = unsubscribe
	return nil
}

// Stop detaches from the relay.
func (n *Notifier) Stop() {
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
}

// NotifyNewReservation records and relays a new-reservation event.
func (n *Notifier) NotifyNewReservation(ctx context.Context, p Payload) {
	n.notify(ctx, relay.KindNewReservation, p)
}

// NotifyCancellation records and relays a cancellation event.
func (n *Notifier) NotifyCancellation(ctx context.Context, p Payload) {
	n.notify(ctx, relay.KindCancellation, p)
}

// NotifyChange records and relays a reservation-change event.
func (n *Notifier) NotifyChange(ctx context.Context, p Payload) {
	n.notify(ctx, relay.KindChange, p)
}

func (n *Notifier) notify(ctx context.Context, kind relay.Kind, p Payload) {
	log := n.logger.WithContext(ctx)

	title := renderTitle(kind)
	message := renderMessage(kind, p)

	// 1. Local inbox record.
	record := n.store.Add(Record{
		Kind:    kind,
		Title:   title,
		Message: message,
		Payload: p,
	})

	// 2. Cross-instance relay.
	msg := n.transport.Broadcast(ctx, relay.Message{
		Kind:          kind,
		PatientName:   p.PatientName,
		PatientPhone:  p.PatientPhone,
		ExamType:      p.ExamType,
		RequestedDate: p.RequestedDate,
		RequestedTime: p.RequestedTime,
	})

	// 3. Desktop toast, best-effort.
	n.showDesktop(title, message)

	log.Info("notification recorded and relayed",
		slog.String("kind", string(kind)),
		slog.String("record_id", record.ID),
		slog.String("message_id", msg.ID))
}

// handleRelayed converts a message admitted by this instance's dedup filter
// into a local inbox record.
func (n *Notifier) handleRelayed(msg relay.Message) {
	p := Payload{
		PatientName:   msg.PatientName,
		PatientPhone:  msg.PatientPhone,
		ExamType:      msg.ExamType,
		RequestedDate: msg.RequestedDate,
		RequestedTime: msg.RequestedTime,
	}

	title := renderTitle(msg.Kind)
	message := renderMessage(msg.Kind, p)

	n.store.Add(Record{
		Kind:    msg.Kind,
		Title:   title,
		Message: message,
		Payload: p,
	})
	n.showDesktop(title, message)
}

// showDesktop applies the tri-state permission gate: show when granted,
// request when unasked and show on grant, stay silent when denied. Every
// failure here is swallowed; a missing toast must never block recording or
// relaying.
func (n *Notifier) showDesktop(title, message string) {
	if n.desktop == nil {
		return
	}

	switch n.desktop.Permission() {
	case PermissionGranted:
		if err := n.desktop.Show(title, message); err != nil {
			n.logger.Warn("desktop notification failed", slog.String("error", err.Error()))
		}
	case PermissionDefault:
		perm, err := n.desktop.RequestPermission()
		if err != nil {
			n.logger.Warn("desktop permission request failed", slog.String("error", err.Error()))
			return
		}
		if perm == PermissionGranted {
			if err := n.desktop.Show(title, message); err != nil {
				n.logger.Warn("desktop notification failed", slog.String("error", err.Error()))
			}
		}
	case PermissionDenied:
		// Nothing to do.
	}
}
