package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrAccountNotFound is returned when no account matches the given email.
var ErrAccountNotFound = errors.New("account not found")

// Account is one admin signin account.
type Account struct {
	ID             string
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	CreatedAt      time.Time
}

// AccountStorage persists admin accounts.
type AccountStorage interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ConfirmEmail(ctx context.Context, email string) error
}

type pgAccountStorage struct {
	db *sql.DB
}

// NewPGAccountStorage creates a Postgres-backed account store.
func NewPGAccountStorage(db *sql.DB) AccountStorage {
	return &pgAccountStorage{db: db}
}

func (s *pgAccountStorage) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_accounts (id, email, password_hash, email_confirmed, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Email, a.PasswordHash, a.EmailConfirmed, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *pgAccountStorage) GetByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, email_confirmed, created_at
		 FROM admin_accounts WHERE email = $1`, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.EmailConfirmed, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (s *pgAccountStorage) ConfirmEmail(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admin_accounts SET email_confirmed = TRUE WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
