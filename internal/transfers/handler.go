package transfers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/auth"
)

// Handler exposes movement request endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfers handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Kind    string            `json:"kind"`
	Amount  decimal.Decimal   `json:"amount"`
	PIN     string            `json:"pin"`
	Note    string            `json:"note"`
	Details map[string]string `json:"details"`
}

// Transfer records an outgoing transfer request.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.RequestTransfer(c.UserContext(), sess, TransferInput{
		Kind: req.Kind, Amount: req.Amount, PIN: req.PIN, Note: req.Note, Details: req.Details,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// Deposit records a declared deposit.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.RequestDeposit(c.UserContext(), sess, DepositInput{
		Kind: req.Kind, Amount: req.Amount, Note: req.Note, Details: req.Details,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// History lists the caller's transactions.
func (h *Handler) History(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), sess, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"transactions": entries})
}
