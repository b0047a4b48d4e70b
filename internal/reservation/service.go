package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/notify"
	"github.com/mirae-imaging/backoffice/internal/rollup"
)

// EventNotifier fans a reservation event out to the admin consoles. The
// notify facade satisfies it; tests substitute a recorder.
type EventNotifier interface {
	NotifyNewReservation(ctx context.Context, p notify.Payload)
	NotifyCancellation(ctx context.Context, p notify.Payload)
}

// Messenger queues patient-facing confirmations. Delivery is best-effort
// and asynchronous; the reservation persists whether or not anything is
// delivered.
type Messenger interface {
	ReservationReceived(r Reservation)
	ReservationConfirmed(r Reservation)
}

// Service owns the reservation workflow.
type Service struct {
	storage   Storage
	notifier  EventNotifier
	messenger Messenger
	logger    *logger.Logger
}

// NewService creates a reservation service. notifier and messenger may be
// nil; the corresponding side effects are skipped.
func NewService(storage Storage, notifier EventNotifier, messenger Messenger, logger *logger.Logger) *Service {
	return &Service{
		storage:   storage,
		notifier:  notifier,
		messenger: messenger,
		logger:    logger,
	}
}

// Create persists a new reservation and, on success, fans out the
// back-office notification and queues the patient confirmation. The two
// side effects are independent of each other and of the caller: a
// reservation that saved is reported as saved even when every delivery
// path fails.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Reservation, error) {
	log := s.logger.WithContext(ctx).WithComponent("reservation-service")

	if _, err := time.Parse("2006-01-02", req.RequestedDate); err != nil {
		return nil, fmt.Errorf("invalid requested_date %q: %w", req.RequestedDate, err)
	}

	r := &Reservation{
		ID:            uuid.New().String(),
		PatientName:   req.PatientName,
		PatientPhone:  req.PatientPhone,
		BirthDate:     req.BirthDate,
		Gender:        req.Gender,
		ExamType:      req.ExamType,
		RequestedDate: req.RequestedDate,
		RequestedTime: req.RequestedTime,
		Notes:         req.Notes,
		Status:        StatusPending,
	}

	if err := s.storage.Create(ctx, r); err != nil {
		log.Error("failed to create reservation",
			slog.String("error", err.Error()),
			slog.String("patient_phone", r.PatientPhone))
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	log.Info("reservation created",
		slog.String("reservation_id", r.ID),
		slog.String("exam_type", r.ExamType),
		slog.String("requested_date", r.RequestedDate))

	if s.notifier != nil {
		s.notifier.NotifyNewReservation(ctx, payloadFrom(r))
	}
	if s.messenger != nil {
		s.messenger.ReservationReceived(*r)
	}

	return r, nil
}

// List returns every reservation, newest first.
func (s *Service) List(ctx context.Context) ([]Reservation, error) {
	return s.storage.List(ctx)
}

// UpdateStatus transitions a reservation. State is only considered changed
// once the store reports success; on failure the prior state stands.
// Confirmation queues the patient SMS/email, cancellation fans out a
// cancellation notification.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Reservation, error) {
	log := s.logger.WithContext(ctx).WithComponent("reservation-service")

	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	if err := s.storage.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	r, err := s.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info("reservation status updated",
		slog.String("reservation_id", id),
		slog.String("status", string(status)))

	switch status {
	case StatusConfirmed:
		if s.messenger != nil {
			s.messenger.ReservationConfirmed(*r)
		}
	case StatusCancelled:
		if s.notifier != nil {
			s.notifier.NotifyCancellation(ctx, payloadFrom(r))
		}
	}

	return r, nil
}

// ListByPatient returns a patient's reservations, matched on name and
// phone, newest first.
func (s *Service) ListByPatient(ctx context.Context, name, phone string) ([]Reservation, error) {
	return s.storage.ListByPatient(ctx, name, phone)
}

// Patients projects the reservation list into per-patient rollups.
func (s *Service) Patients(ctx context.Context) ([]rollup.Patient, error) {
	reservations, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	visits := make([]rollup.Visit, 0, len(reservations))
	for _, r := range reservations {
		visits = append(visits, rollup.Visit{
			PatientName:  r.PatientName,
			PatientPhone: r.PatientPhone,
			ExamType:     r.ExamType,
			CreatedAt:    r.CreatedAt,
		})
	}

	return rollup.Build(visits, time.Now()), nil
}

func payloadFrom(r *Reservation) notify.Payload {
	return notify.Payload{
		PatientName:   r.PatientName,
		PatientPhone:  r.PatientPhone,
		ExamType:      r.ExamType,
		RequestedDate: r.RequestedDate,
		RequestedTime: r.RequestedTime,
	}
}
