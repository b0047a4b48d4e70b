package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

type fakeAccountStorage struct {
	accounts map[string]*Account
}

func newFakeAccountStorage() *fakeAccountStorage {
	return &fakeAccountStorage{accounts: make(map[string]*Account)}
}

func (f *fakeAccountStorage) Create(ctx context.Context, a *Account) error {
	f.accounts[a.Email] = a
	return nil
}

func (f *fakeAccountStorage) GetByEmail(ctx context.Context, email string) (*Account, error) {
	a, ok := f.accounts[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccountStorage) ConfirmEmail(ctx context.Context, email string) error {
	a, ok := f.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	a.EmailConfirmed = true
	return nil
}

func newTestService(t *testing.T, adminEmails []string) (*Service, *fakeAccountStorage) {
	t.Helper()
	storage := newFakeAccountStorage()
	issuer := NewTokenIssuer("test-secret", time.Hour)
	return NewService(storage, issuer, adminEmails, testLogger()), storage
}

func seedAccount(t *testing.T, storage *fakeAccountStorage, email, password string, confirmed bool) {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, storage.Create(context.Background(), &Account{
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: confirmed,
	}))
}

func TestSignIn_Success(t *testing.T) {
	svc, storage := newTestService(t, []string{"admin@mirae-imaging.example"})
	seedAccount(t, storage, "admin@mirae-imaging.example", "secret1234", true)

	token, err := svc.SignIn(context.Background(), "admin@mirae-imaging.example", "secret1234")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@mirae-imaging.example", email)
}

func TestSignIn_WrongPassword(t *testing.T) {
	svc, storage := newTestService(t, []string{"admin@mirae-imaging.example"})
	seedAccount(t, storage, "admin@mirae-imaging.example", "secret1234", true)

	_, err := svc.SignIn(context.Background(), "admin@mirae-imaging.example", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_UnknownEmailIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t, []string{"admin@mirae-imaging.example"})

	_, err := svc.SignIn(context.Background(), "nobody@mirae-imaging.example", "secret1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_UnconfirmedEmail(t *testing.T) {
	svc, storage := newTestService(t, []string{"admin@mirae-imaging.example"})
	seedAccount(t, storage, "admin@mirae-imaging.example", "secret1234", false)

	_, err := svc.SignIn(context.Background(), "admin@mirae-imaging.example", "secret1234")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)
}

func TestSignIn_NotOnAllowList(t *testing.T) {
	svc, storage := newTestService(t, []string{"admin@mirae-imaging.example"})
	seedAccount(t, storage, "someone@mirae-imaging.example", "secret1234", true)

	_, err := svc.SignIn(context.Background(), "someone@mirae-imaging.example", "secret1234")
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestSignIn_AllowListCaseInsensitive(t *testing.T) {
	svc, storage := newTestService(t, []string{"Admin@Mirae-Imaging.example"})
	seedAccount(t, storage, "admin@mirae-imaging.example", "secret1234", true)

	_, err := svc.SignIn(context.Background(), "admin@mirae-imaging.example", "secret1234")
	assert.NoError(t, err)
}

func TestTokenIssuer_RejectsTampering(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("admin@mirae-imaging.example")
	require.NoError(t, err)

	_, err = issuer.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer("other-secret", time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue("admin@mirae-imaging.example")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
