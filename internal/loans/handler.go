package loans

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Purpose        string          `json:"purpose"`
	DurationMonths int             `json:"duration_months"`
}

func (h *Handler) Apply(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.Apply(c.UserContext(), sess, Input{Amount: req.Amount, Purpose: req.Purpose, DurationMonths: req.DurationMonths})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

func (h *Handler) List(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	recs, err := h.service.List(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"loans": recs})
}
