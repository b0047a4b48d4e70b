package relay

import (
	"strconv"
	"time"
)

// Kind tags the event a relay message carries.
type Kind string

const (
	KindNewReservation Kind = "new_reservation"
	KindCancellation   Kind = "cancellation"
	KindChange         Kind = "change"
)

// Message is the payload relayed between back-office instances when a
// reservation event happens. It is transient: it lives in the bus and the
// bounded fallback buffer, never in the notification inbox (the inbox keeps
// its own records with its own IDs, and the two ID spaces are not
// reconciled).
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"` // transport that broadcast it; receivers skip their own

	PatientName   string `json:"patient_name"`
	PatientPhone  string `json:"patient_phone"`
	ExamType      string `json:"exam_type"`
	RequestedDate string `json:"requested_date"`
	RequestedTime string `json:"requested_time"`
}

// Key returns the logical identity the dedup filter tracks. Messages
// produced by this codebase always carry a unique ID; the name+timestamp
// composite only exists for compatibility with producers that omit one,
// and is not collision-proof.
func (m Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.PatientName + "_" + strconv.FormatInt(m.Timestamp.UnixMilli(), 10)
}
