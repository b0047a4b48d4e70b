package reservation

import "time"

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Reservation is one exam booking submitted from the public site.
type Reservation struct {
	ID            string    `json:"id"`
	PatientName   string    `json:"patient_name"`
	PatientPhone  string    `json:"patient_phone"`
	BirthDate     string    `json:"birth_date,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	ExamType      string    `json:"exam_type"`
	RequestedDate string    `json:"requested_date"`
	RequestedTime string    `json:"requested_time"`
	Notes         string    `json:"notes"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateRequest is the public booking form payload.
type CreateRequest struct {
	PatientName   string `json:"patient_name" binding:"required"`
	PatientPhone  string `json:"patient_phone" binding:"required"`
	BirthDate     string `json:"birth_date"`
	Gender        string `json:"gender"`
	ExamType      string `json:"exam_type" binding:"required"`
	RequestedDate string `json:"requested_date" binding:"required"`
	RequestedTime string `json:"requested_time" binding:"required"`
	Notes         string `json:"notes"`
}

// UpdateStatusRequest changes a reservation's lifecycle state.
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}
