package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no reservation matches the given ID.
var ErrNotFound = errors.New("reservation not found")

// Storage persists reservations.
type Storage interface {
	Create(ctx context.Context, r *Reservation) error
	List(ctx context.Context) ([]Reservation, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	ListByPatient(ctx context.Context, name, phone string) ([]Reservation, error)
}

type pgStorage struct {
	db *sql.DB
}

// NewPGStorage creates a Postgres-backed reservation store.
func NewPGStorage(db *sql.DB) Storage {
	return &pgStorage{db: db}
}

const reservationColumns = `id, patient_name, patient_phone,
	COALESCE(to_char(birth_date, 'YYYY-MM-DD'), ''), COALESCE(gender, ''),
	exam_type, to_char(requested_date, 'YYYY-MM-DD'), requested_time,
	notes, status, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID, &r.PatientName, &r.PatientPhone, &r.BirthDate, &r.Gender,
		&r.ExamType, &r.RequestedDate, &r.RequestedTime,
		&r.Notes, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *pgStorage) Create(ctx context.Context, r *Reservation) error {
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reservations
			(id, patient_name, patient_phone, birth_date, gender, exam_type,
			 requested_date, requested_time, notes, status, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, '')::date, NULLIF($5, ''), $6, $7::date, $8, $9, $10, $11, $12)`,
		r.ID, r.PatientName, r.PatientPhone, r.BirthDate, r.Gender, r.ExamType,
		r.RequestedDate, r.RequestedTime, r.Notes, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (s *pgStorage) List(ctx context.Context) ([]Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (s *pgStorage) GetByID(ctx context.Context, id string) (*Reservation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)

	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (s *pgStorage) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reservations SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStorage) ListByPatient(ctx context.Context, name, phone string) ([]Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE patient_name = $1 AND patient_phone = $2
		 ORDER BY created_at DESC`,
		name, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations by patient: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]Reservation, error) {
	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
