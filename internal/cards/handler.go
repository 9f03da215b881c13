package cards

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	CardType       string `json:"card_type"`
	CardLevel      string `json:"card_level"`
	CardholderName string `json:"cardholder_name"`
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
	rec, err := h.service.Apply(c.UserContext(), sess, Input{Type: req.CardType, Level: req.CardLevel, CardholderName: req.CardholderName})
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
	return c.JSON(fiber.Map{"cards": recs})
}
