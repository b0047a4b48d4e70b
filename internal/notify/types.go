package notify

import (
	"time"

	"github.com/mirae-imaging/backoffice/internal/relay"
)

// Payload carries the reservation fields a notification is about.
type Payload struct {
	PatientName   string `json:"patient_name"`
	PatientPhone  string `json:"patient_phone"`
	ExamType      string `json:"exam_type"`
	RequestedDate string `json:"requested_date"`
	RequestedTime string `json:"requested_time"`
}

// Record is one entry in the instance-local notification inbox. Title and
// Message are rendered once at creation and never change; only IsRead is
// mutable. Record IDs are local to this inbox and deliberately not
// reconciled with relay message IDs.
type Record struct {
	ID        string     `json:"id"`
	Kind      relay.Kind `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Payload   Payload    `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	IsRead    bool       `json:"is_read"`
}

// Permission mirrors the desktop-notification permission gate the admin
// console reports: toasts show when granted, are requested when unasked,
// and are silently skipped when denied.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// DesktopNotifier shows best-effort toasts on attached admin consoles.
type DesktopNotifier interface {
	Permission() Permission
	RequestPermission() (Permission, error)
	Show(title, message string) error
}
