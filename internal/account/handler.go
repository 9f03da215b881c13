package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/identity"
)

// Handler serves the signed-in customer's own profile.
type Handler struct {
	service *Service
	ids     *identity.Service
}

func NewHandler(service *Service, ids *identity.Service) *Handler {
	return &Handler{service: service, ids: ids}
}

type meResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name,omitempty"`
	Account     *Snapshot `json:"account,omitempty"`
}

// Me returns the user and, for customers, the account with its balance.
// Administrators have no account document.
func (h *Handler) Me(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	user, err := h.ids.Get(c.UserContext(), sess.UserID)
	if err != nil {
		return err
	}
	resp := meResponse{UserID: user.ID, Email: user.Email, Role: user.Role, DisplayName: user.DisplayName}

	a, err := h.service.GetByOwner(c.UserContext(), user.ID)
	switch {
	case err == nil:
		snap, err := h.service.Snapshot(c.UserContext(), a.ID)
		if err != nil {
			return err
		}
		resp.Account = &snap
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// UpdateMe edits the profile fields present in the body.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	sess, err := auth.MustSession(c)
	if err != nil {
		return err
	}
	var p Profile
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, err := h.service.GetByOwner(c.UserContext(), sess.UserID)
	if err != nil {
		return err
	}
	snap, err := h.service.UpdateProfile(c.UserContext(), a.ID, p)
	if err != nil {
		return err
	}
	if p.FirstName != nil || p.LastName != nil {
		if _, err := h.ids.UpdateProfile(c.UserContext(), sess.UserID, snap.FirstName+" "+snap.LastName); err != nil {
			return err
		}
	}
	return c.JSON(snap)
}
