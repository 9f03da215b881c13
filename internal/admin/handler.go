package admin

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/ledger"
)

const idempotencyHeader = "Idempotency-Key"

// Handler exposes the admin dashboard endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func recordType(c *fiber.Ctx) (ledger.RecordType, error) {
	t, ok := ledger.ParseRecordType(c.Params("type"))
	if !ok {
		return "", fiber.NewError(http.StatusNotFound, "unknown record type")
	}
	return t, nil
}

// Approve handles POST /admin/:type/:id/approve.
func (h *Handler) Approve(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	t, err := recordType(c)
	if err != nil {
		return err
	}
	out, err := h.service.Approve(c.UserContext(), sess, t, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Reject handles POST /admin/:type/:id/reject.
func (h *Handler) Reject(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	t, err := recordType(c)
	if err != nil {
		return err
	}
	rec, err := h.service.Reject(c.UserContext(), sess, t, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

type adjustRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ClientTxID  string          `json:"client_tx_id"`
}

func (h *Handler) Fund(c *fiber.Ctx) error {
	return h.adjust(c, h.service.Fund)
}

func (h *Handler) Deduct(c *fiber.Ctx) error {
	return h.adjust(c, h.service.Deduct)
}

func (h *Handler) adjust(c *fiber.Ctx, apply func(context.Context, auth.Session, AdjustInput) (ledger.Outcome, error)) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get(idempotencyHeader)
	}
	out, err := apply(c.UserContext(), sess, AdjustInput{
		AccountID:   c.Params("id"),
		Amount:      req.Amount,
		Description: req.Description,
		ClientTxID:  req.ClientTxID,
	})
	if IsDuplicate(err) {
		return c.Status(http.StatusOK).JSON(fiber.Map{"duplicate": true, "outcome": out})
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(out)
}

func (h *Handler) Users(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	users, err := h.service.Users(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *Handler) User(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	details, err := h.service.User(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(details)
}

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

func (h *Handler) Verify(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req verifyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}
	snap, err := h.service.Verify(c.UserContext(), sess, c.Params("id"), verified)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Queue handles GET /admin/transactions|loans|cards?status=Pending.
func (h *Handler) Queue(t ledger.RecordType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.MustSession(c)
		if err != nil {
			return err
		}
		recs, err := h.service.Queue(c.UserContext(), sess, t, ledger.Status(c.Query("status")), c.QueryInt("limit", 0))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"records": recs})
	}
}

func (h *Handler) Deposits(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	entries, err := h.service.Deposits(c.UserContext(), sess, ledger.Status(c.Query("status")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deposits": entries})
}
