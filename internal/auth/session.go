package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/identity"
)

type sessionKey struct{}

// Session is the caller identity attached to an authenticated request. It is
// built once by the auth middleware and never mutated afterwards.
type Session struct {
	UserID       string
	Email        string
	Role         string
	TokenVersion int
	RequestID    string
}

// IsAdmin reports whether the session may use administrative operations.
func (s Session) IsAdmin() bool {
	return s.Role == identity.RoleAdmin
}

// WithSession attaches s to the request.
func WithSession(c *fiber.Ctx, s Session) {
	c.Locals(sessionKey{}, s)
}

// SessionFrom returns the session attached to the request, if any.
func SessionFrom(c *fiber.Ctx) (Session, bool) {
	s, ok := c.Locals(sessionKey{}).(Session)
	return s, ok && s.UserID != ""
}

// MustSession returns the request session or apperr.ErrUnauthorized.
func MustSession(c *fiber.Ctx) (Session, error) {
	s, ok := SessionFrom(c)
	if !ok {
		return Session{}, apperr.ErrUnauthorized
	}
	return s, nil
}
