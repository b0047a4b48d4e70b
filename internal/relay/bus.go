package relay

// Bus is the primary pub/sub delivery path between back-office instances.
// Delivery is best-effort: no ordering, no persistence, no acknowledgment.
// The Transport layers the fallback buffer on top regardless of whether the
// bus publish succeeded.
type Bus interface {
	Publish(msg Message) error
	Subscribe(handler func(Message)) (BusSubscription, error)
}

// BusSubscription detaches a bus handler.
type BusSubscription interface {
	Unsubscribe() error
}
