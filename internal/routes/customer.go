package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/cards"
	"github.com/calivra/calivra_bank/internal/loans"
	"github.com/calivra/calivra_bank/internal/settings"
	"github.com/calivra/calivra_bank/internal/transfers"
)

// RegisterCustomerRoutes wires the user dashboard. Every route needs a
// session; movement requests are also idempotent.
func RegisterCustomerRoutes(r fiber.Router, svc *Services, jwt, idem fiber.Handler) {
	me := account.NewHandler(svc.Accounts, svc.Identity)
	r.Get("/me", jwt, me.Me)
	r.Patch("/me", jwt, me.UpdateMe)

	tx := transfers.NewHandler(svc.Transfers)
	r.Get("/transactions", jwt, tx.History)
	r.Post("/transfers", jwt, idem, tx.Transfer)
	r.Post("/deposits", jwt, idem, tx.Deposit)

	ln := loans.NewHandler(svc.Loans)
	r.Get("/loans", jwt, ln.List)
	r.Post("/loans", jwt, idem, ln.Apply)

	cd := cards.NewHandler(svc.Cards)
	r.Get("/cards", jwt, cd.List)
	r.Post("/cards", jwt, idem, cd.Apply)

	r.Get("/settings", jwt, settings.NewHandler(svc.Settings).Get)

	r.Get("/stream/account", jwt, streamTopic(svc.Hub, accountTopic(svc.Accounts)))
	r.Get("/stream/settings", jwt, streamTopic(svc.Hub, settingsTopic(svc.Settings)))
	r.Get("/stream/session", jwt, streamTopic(svc.Hub, sessionTopic))
}
