package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rentbox/internal/app/middleware"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenRequired      = errors.New("auth: token required")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrAdminDisabled      = errors.New("auth: admin access not configured")
)

const adminSubject = "admin"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies bearer tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, expiresAt time.Time) (string, error)
	Verify(token string) (subject string, err error)
}

// Service authenticates the single property administrator. The password is
// held only as a hash.
type Service struct {
	Passwords PasswordHasher
	Tokens    TokenIssuer
	AdminHash string
	TokenTTL  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Service) Login(ctx context.Context, password string) (*LoginResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.Passwords.Compare(s.AdminHash, password); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("admin login rejected")
		}
		return nil, ErrInvalidCredentials
	}
	expiresAt := s.now().Add(s.tokenTTL()).UTC()
	token, err := s.Tokens.Issue(adminSubject, expiresAt)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("admin authenticated", "expires_at", expiresAt)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveToken maps a bearer token to the caller principal.
func (s *Service) ResolveToken(ctx context.Context, token string) (middleware.Principal, error) {
	if err := s.ensureDependencies(); err != nil {
		return middleware.Principal{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return middleware.Principal{}, ErrTokenRequired
	}
	subject, err := s.Tokens.Verify(token)
	if err != nil || subject != adminSubject {
		return middleware.Principal{}, ErrInvalidToken
	}
	return middleware.Principal{Subject: subject, Admin: true}, nil
}

func (s *Service) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	case s.AdminHash == "":
		return ErrAdminDisabled
	default:
		return nil
	}
}
