// Package services – AuthService
//
// This file implements AuthService, the application-level component that owns
// account registration and login. It normalizes identity attributes, enforces
// the password policy, hashes credentials with bcrypt, and issues JWT access
// tokens on success.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the username but never the password or its hash.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptforge/go-prompt-backend/internal/auth"
	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/repo"
)

// UserRepo defines the repository contract required by AuthService.
type UserRepo interface {
	// CreateUser inserts a new user row with an already-hashed password.
	CreateUser(ctx context.Context, db *gorm.DB, username, email, passwordHash string) (*domain.User, error)

	// GetUserByUsername fetches a user by unique username.
	GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error)

	// GetUserByEmail fetches a user by unique email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)
}

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, username string) (string, error)
}

// AuthService provides registration and login on top of the user repository.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Tokens issues JWTs on successful registration/login.
	Tokens TokenIssuer

	// MaxUsernameRunes caps usernames; values <= 0 fall back to 64.
	MaxUsernameRunes int
}

// NewAuthService constructs an AuthService with default limits.
func NewAuthService(db *gorm.DB, r UserRepo, tokens TokenIssuer) *AuthService {
	return &AuthService{DB: db, Repo: r, Tokens: tokens, MaxUsernameRunes: 64}
}

// Register creates an account and returns the user plus a fresh access token.
//
// Returns ErrEmptyPrompt for blank identity fields, *PasswordPolicyError when
// the password fails the policy, and ErrUserExists on duplicate username or
// email.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer span.End()

	username = strings.TrimSpace(username)
	email = auth.NormalizeEmail(email)
	if username == "" || email == "" {
		return nil, "", ErrEmptyPrompt
	}
	if s.MaxUsernameRunes > 0 && len([]rune(username)) > s.MaxUsernameRunes {
		return nil, "", ErrTooLong
	}

	if problems := auth.ValidatePassword(password); len(problems) > 0 {
		return nil, "", &PasswordPolicyError{Problems: problems}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	u, err := s.Repo.CreateUser(ctx, s.DB, username, email, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, "", ErrUserExists
		}
		return nil, "", err
	}

	token, err := s.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies credentials for a username or email and returns the user and
// a fresh access token. Unknown accounts and bad passwords both map to
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login",
		trace.WithAttributes(attribute.String("user.name", identifier)),
	)
	defer span.End()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	u, err := s.lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !auth.CheckPassword(password, u.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// lookup resolves an identifier to a user, treating anything containing "@"
// as an email.
func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		return s.Repo.GetUserByEmail(ctx, s.DB, auth.NormalizeEmail(identifier))
	}
	return s.Repo.GetUserByUsername(ctx, s.DB, identifier)
}
