package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid != "" {
			auth.WithSession(c, auth.Session{UserID: uid})
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})
	app.Post("/other", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return c.SendStatus(fiber.StatusAccepted)
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, key, user string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _ := setupTestApp(t)
	if status, _ := post(t, app, "/resource", "", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, payload := post(t, app, "/resource", "abc123", "u1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}
	status, cached := post(t, app, "/resource", "abc123", "u1")
	if status != fiber.StatusCreated || cached != payload {
		t.Fatalf("expected cached %d %s got %d %s", fiber.StatusCreated, payload, status, cached)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("handler ran %d times", n)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScoped(t *testing.T) {
	app, calls := setupTestApp(t)

	post(t, app, "/resource", "same", "u1")
	post(t, app, "/resource", "same", "u2")
	if status, _ := post(t, app, "/other", "same", "u1"); status != fiber.StatusAccepted {
		t.Fatalf("expected other endpoint to run, got %d", status)
	}
	if n := atomic.LoadInt32(calls); n != 3 {
		t.Fatalf("expected three distinct executions, got %d", n)
	}
}
