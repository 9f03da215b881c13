package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/admin"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/middleware"
	"github.com/calivra/calivra_bank/internal/settings"
)

// RegisterAdminRoutes wires the admin dashboard under /admin.
func RegisterAdminRoutes(r fiber.Router, svc *Services, jwt, idem fiber.Handler) {
	h := admin.NewHandler(svc.Admin)
	g := r.Group("/admin", jwt, middleware.RequireAdmin())

	g.Get("/stats", h.Stats)
	g.Get("/users", h.Users)
	g.Get("/users/:id", h.User)
	g.Post("/users/:id/fund", idem, h.Fund)
	g.Post("/users/:id/deduct", idem, h.Deduct)
	g.Post("/users/:id/verify", h.Verify)

	g.Get("/transactions", h.Queue(ledger.RecordTransaction))
	g.Get("/deposits", h.Deposits)
	g.Get("/loans", h.Queue(ledger.RecordLoan))
	g.Get("/cards", h.Queue(ledger.RecordCard))
	g.Post("/:type/:id/approve", h.Approve)
	g.Post("/:type/:id/reject", h.Reject)

	sh := settings.NewHandler(svc.Settings)
	g.Put("/settings/bank", sh.PutBank)
	g.Put("/settings/crypto", sh.PutCrypto)

	g.Get("/stream", streamTopic(svc.Hub, queueTopic(svc.Feed)))
}
