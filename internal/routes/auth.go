package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints. Logout needs a valid
// access token; login and refresh do not.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, jwt fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwt, h.Logout)
}
