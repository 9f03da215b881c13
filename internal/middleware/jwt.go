package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
)

// JWTAuth validates the bearer access token, checks its token version and
// attaches the resulting session to the request.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		sess, err := svc.Authorize(c.UserContext(), token)
		if err != nil {
			return err
		}
		sess.RequestID = RequestIDFrom(c)
		auth.WithSession(c, sess)
		return c.Next()
	}
}

// RequireAdmin rejects sessions without the admin role. It must run after JWTAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.MustSession(c)
		if err != nil {
			return err
		}
		if !sess.IsAdmin() {
			return apperr.ErrForbidden
		}
		return c.Next()
	}
}
