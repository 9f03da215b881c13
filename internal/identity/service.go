package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/realtime"
)

const minPasswordLength = 6

// Publisher delivers session change events. realtime.Hub satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, value any) error
}

// SessionEvent is published whenever a user signs in or out.
type SessionEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	SignedIn bool      `json:"signed_in"`
	Version  int       `json:"token_version"`
	At       time.Time `json:"at"`
}

// Service manages identity lifecycle.
type Service struct {
	repo    Repository
	isAdmin func(email string) bool
	events  Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new identity service. isAdmin decides the role given at
// registration; events may be nil.
func NewService(repo Repository, isAdmin func(email string) bool, events Publisher, logger *slog.Logger) *Service {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, isAdmin: isAdmin, events: events, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" {
		return User{}, apperr.Invalid("email", "is required")
	}
	if len(creds.Password) < minPasswordLength {
		return User{}, apperr.Invalid("password", "must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	role := RoleUser
	if s.isAdmin(email) {
		role = RoleAdmin
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(creds.DisplayName),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials and records the login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(creds.Email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now
	s.publish(ctx, user, true)
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Count returns the number of registered users.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// UpdateProfile changes the user's display name.
func (s *Service) UpdateProfile(ctx context.Context, id, displayName string) (User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, apperr.Invalid("display_name", "is required")
	}
	if err := s.repo.UpdateDisplayName(ctx, id, displayName); err != nil {
		return User{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// BumpTokenVersion signs the user out everywhere by invalidating every token
// issued under the current version.
func (s *Service) BumpTokenVersion(ctx context.Context, id string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.TokenVersion++
	if err := s.repo.UpdateTokenVersion(ctx, id, user.TokenVersion); err != nil {
		return User{}, err
	}
	s.publish(ctx, user, false)
	return user, nil
}

func (s *Service) publish(ctx context.Context, user User, signedIn bool) {
	if s.events == nil {
		return
	}
	evt := SessionEvent{Type: "session.changed", UserID: user.ID, SignedIn: signedIn, Version: user.TokenVersion, At: s.now()}
	if err := s.events.Publish(ctx, realtime.SessionTopic(user.ID), evt); err != nil {
		s.logger.Warn("session event publish failed", "user_id", user.ID, "error", err)
	}
}
