package onboarding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates the user, its account and returns a token pair.
func (h *Handler) Register(c *fiber.Ctx) error {
	var form Form
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Register(c.UserContext(), form)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}
