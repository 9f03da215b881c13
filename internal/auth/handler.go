package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/identity"
)

// LoginRecorder stamps a successful login on the account owned by a user and
// returns the account id. Users without an account yield "".
type LoginRecorder func(ctx context.Context, userID string) string

// Handler exposes auth endpoints for login/refresh/logout.
type Handler struct {
	ids      *identity.Service
	svc      *Service
	accounts LoginRecorder
}

func NewHandler(ids *identity.Service, svc *Service, accounts LoginRecorder) *Handler {
	return &Handler{ids: ids, svc: svc, accounts: accounts}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
	AccountID    string `json:"account_id,omitempty"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	pair, err := h.svc.Issue(user)
	if err != nil {
		return err
	}
	var accountID string
	if h.accounts != nil {
		accountID = h.accounts(c.UserContext(), user.ID)
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		UserID:       user.ID,
		Role:         user.Role,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenVersion: user.TokenVersion,
		AccountID:    accountID,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new token pair using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	pair, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(pair)
}

// Logout invalidates the caller's tokens by bumping the token version.
func (h *Handler) Logout(c *fiber.Ctx) error {
	sess, err := MustSession(c)
	if err != nil {
		return err
	}
	if err := h.svc.Logout(c.UserContext(), sess.UserID); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
