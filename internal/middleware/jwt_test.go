package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/config"
	"github.com/calivra/calivra_bank/internal/identity"
)

// statusOf is a reduced error handler for these tests.
func statusOf(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return c.SendStatus(fe.Code)
	case errors.Is(err, apperr.ErrForbidden):
		return c.SendStatus(fiber.StatusForbidden)
	default:
		return c.SendStatus(fiber.StatusUnauthorized)
	}
}

func TestJWTAuthAndRequireAdmin(t *testing.T) {
	cfg := config.Config{JWTSecret: "a", RefreshSecret: "r", AccessTokenTTL: time.Minute, RefreshTTL: time.Hour}
	isAdmin := func(email string) bool { return email == "root@example.com" }
	ids := identity.NewService(identity.NewMemoryRepository(), isAdmin, nil, nil)
	svc := auth.NewService(cfg, ids)

	ctx := context.Background()
	user, _ := ids.Register(ctx, identity.Credentials{Email: "ada@example.com", Password: "secret1"})
	root, _ := ids.Register(ctx, identity.Credentials{Email: "root@example.com", Password: "secret1"})
	userTokens, _ := svc.Issue(user)
	rootTokens, _ := svc.Issue(root)

	app := fiber.New(fiber.Config{ErrorHandler: statusOf})
	app.Use(RequestID())
	app.Get("/me", JWTAuth(svc), func(c *fiber.Ctx) error {
		sess, err := auth.MustSession(c)
		if err != nil {
			return err
		}
		if sess.RequestID == "" {
			return fiber.NewError(fiber.StatusInternalServerError, "request id missing")
		}
		return c.SendString(sess.UserID)
	})
	app.Get("/admin", JWTAuth(svc), RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	cases := []struct {
		path, token string
		want        int
	}{
		{"/me", "", fiber.StatusUnauthorized},
		{"/me", "garbage", fiber.StatusUnauthorized},
		{"/me", userTokens.RefreshToken, fiber.StatusUnauthorized},
		{"/me", userTokens.AccessToken, fiber.StatusOK},
		{"/admin", userTokens.AccessToken, fiber.StatusForbidden},
		{"/admin", rootTokens.AccessToken, fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
		if tc.token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tc.token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tc.want {
			t.Errorf("%s with %q: expected %d got %d", tc.path, tc.token, tc.want, resp.StatusCode)
		}
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+userTokens.AccessToken)
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected revoked token to be refused, got %d", resp.StatusCode)
	}
}
