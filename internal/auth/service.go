package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mirae-imaging/backoffice/internal/logger"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotConfirmed is returned for accounts that never finished
	// email confirmation.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrNotAdmin is returned for confirmed accounts missing from the
	// admin allow-list.
	ErrNotAdmin = errors.New("account is not an administrator")
)

// Service authenticates admin accounts against the allow-list.
type Service struct {
	storage     AccountStorage
	issuer      *TokenIssuer
	adminEmails map[string]struct{}
	logger      *logger.Logger
}

// NewService creates an auth service. adminEmails is the allow-list of
// addresses permitted to sign in; matching is case-insensitive.
func NewService(storage AccountStorage, issuer *TokenIssuer, adminEmails []string, logger *logger.Logger) *Service {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &Service{
		storage:     storage,
		issuer:      issuer,
		adminEmails: allowed,
		logger:      logger,
	}
}

// SignIn verifies the credentials and returns a session token. Unknown
// email and wrong password are indistinguishable to the caller; the
// unconfirmed-email and not-an-admin cases are reported separately so the
// console can show a useful message.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	log := s.logger.WithContext(ctx).WithComponent("auth-service")

	account, err := s.storage.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		log.Error("failed to look up account", slog.String("error", err.Error()))
		return "", err
	}

	if !checkPassword(account.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	if !account.EmailConfirmed {
		return "", ErrEmailNotConfirmed
	}

	if _, ok := s.adminEmails[strings.ToLower(account.Email)]; !ok {
		log.Warn("signin rejected for non-admin account", slog.String("email", account.Email))
		return "", ErrNotAdmin
	}

	token, err := s.issuer.Issue(account.Email)
	if err != nil {
		log.Error("failed to issue token", slog.String("error", err.Error()))
		return "", err
	}

	log.Info("admin signed in", slog.String("email", account.Email))
	return token, nil
}

// ValidateToken checks a session token and returns the admin email.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	return s.issuer.Validate(tokenString)
}
