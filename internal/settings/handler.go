package settings

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

// Get returns the deposit instructions shown to users.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.service.Platform(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) PutBank(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req BankDetails
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	b, err := h.service.SetBankDetails(c.UserContext(), sess, req)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (h *Handler) PutCrypto(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var req CryptoWallets
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.SetCryptoWallets(c.UserContext(), sess, req)
	if err != nil {
		return err
	}
	return c.JSON(w)
}
