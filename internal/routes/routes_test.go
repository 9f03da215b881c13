package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/config"
	"github.com/calivra/calivra_bank/internal/logging"
	"github.com/calivra/calivra_bank/internal/realtime"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app, _ := newTestStack(t)
	return app
}

func newTestStack(t *testing.T) (*fiber.App, *Services) {
	t.Helper()
	cfg := config.Config{
		AppName:          "calivra-test",
		AppEnv:           "test",
		JWTSecret:        "access-secret",
		RefreshSecret:    "refresh-secret",
		AccessTokenTTL:   time.Minute,
		RefreshTTL:       time.Hour,
		AdminEmails:      []string{"root@calivra.test"},
		TransactionLimit: decimal.NewFromInt(500000),
	}
	logger := logging.Discard()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	svc, err := Setup(app, Deps{Cfg: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app, svc
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

type registered struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	Account struct {
		ID      string          `json:"id"`
		Balance decimal.Decimal `json:"balance"`
	} `json:"account"`
	Tokens struct {
		AccessToken string `json:"access_token"`
	} `json:"tokens"`
}

func register(t *testing.T, app *fiber.App, email, username string) registered {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/v1/register", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "username": username,
		"email": email, "phone": "+2348000000000", "country": "NG",
		"password": "secret1", "confirm_password": "secret1", "pin": "1234",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, status, body)
	}
	var r registered
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	return r
}

func TestHealthAndPing(t *testing.T) {
	app := newTestApp(t)
	if status, body := call(t, app, http.MethodGet, "/healthz", "", nil); status != http.StatusOK {
		t.Fatalf("healthz: %d %s", status, body)
	}
	if status, _ := call(t, app, http.MethodGet, "/api/v1/ping", "", nil); status != http.StatusOK {
		t.Fatalf("ping: %d", status)
	}
}

func TestTransferApprovalFlow(t *testing.T) {
	app := newTestApp(t)
	user := register(t, app, "ada@calivra.test", "ada")
	root := register(t, app, "root@calivra.test", "root")
	if root.Role != "admin" || user.Role != "user" {
		t.Fatalf("unexpected roles: %s %s", user.Role, root.Role)
	}

	// Customers cannot reach the admin surface.
	if status, _ := call(t, app, http.MethodGet, "/api/v1/admin/stats", user.Tokens.AccessToken, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", status)
	}
	if status, _ := call(t, app, http.MethodGet, "/api/v1/me", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	fund := "/api/v1/admin/users/" + user.Account.ID + "/fund"
	if status, body := call(t, app, http.MethodPost, fund, root.Tokens.AccessToken, map[string]any{"amount": "100"}); status != http.StatusCreated {
		t.Fatalf("fund: %d %s", status, body)
	}

	transfer := map[string]any{
		"kind": "local_transfer", "amount": "30", "pin": "1234",
		"details": map[string]string{"beneficiary_name": "Grace", "account_number": "0123456789", "bank_name": "First"},
	}
	status, body := call(t, app, http.MethodPost, "/api/v1/transfers", user.Tokens.AccessToken, transfer)
	if status != http.StatusCreated {
		t.Fatalf("transfer: %d %s", status, body)
	}
	var rec struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &rec)
	if rec.Status != "Pending" {
		t.Fatalf("expected pending record, got %s", body)
	}

	badPIN := map[string]any{"kind": "local_transfer", "amount": "30", "pin": "9999", "details": transfer["details"]}
	if status, _ := call(t, app, http.MethodPost, "/api/v1/transfers", user.Tokens.AccessToken, badPIN); status != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong PIN, got %d", status)
	}

	approve := "/api/v1/admin/transactions/" + rec.ID + "/approve"
	if status, body := call(t, app, http.MethodPost, approve, root.Tokens.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("approve: %d %s", status, body)
	}
	if status, _ := call(t, app, http.MethodPost, approve, root.Tokens.AccessToken, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", status)
	}

	status, body = call(t, app, http.MethodGet, "/api/v1/me", user.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %s", status, body)
	}
	var me struct {
		Account struct {
			Balance decimal.Decimal `json:"balance"`
		} `json:"account"`
	}
	_ = json.Unmarshal(body, &me)
	if !me.Account.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected balance 70, got %s", me.Account.Balance)
	}

	deduct := "/api/v1/admin/users/" + user.Account.ID + "/deduct"
	status, body = call(t, app, http.MethodPost, deduct, root.Tokens.AccessToken, map[string]any{"amount": "200"})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 on overdraw, got %d %s", status, body)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	status, body := call(t, app, http.MethodPost, "/api/v1/register", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "username": "ad",
		"email": "ada@calivra.test", "phone": "+2348000000000", "country": "NG",
		"password": "secret1", "confirm_password": "secret1", "pin": "1234",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	var e errorBody
	_ = json.Unmarshal(body, &e)
	if e.Field != "username" {
		t.Fatalf("expected username field error, got %+v", e)
	}
}

func TestLoginRecordsAccountLogin(t *testing.T) {
	app := newTestApp(t)
	user := register(t, app, "grace@calivra.test", "grace")

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "grace@calivra.test", "password": "secret1",
	})
	if status != http.StatusOK {
		t.Fatalf("login: %d %s", status, body)
	}
	var login struct {
		AccessToken string `json:"access_token"`
		AccountID   string `json:"account_id"`
	}
	_ = json.Unmarshal(body, &login)
	if login.AccountID != user.Account.ID {
		t.Fatalf("expected account %s, got %s", user.Account.ID, login.AccountID)
	}

	status, body = call(t, app, http.MethodGet, "/api/v1/me", login.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %s", status, body)
	}
	var me struct {
		Account struct {
			LastLogin *time.Time `json:"last_login"`
		} `json:"account"`
	}
	_ = json.Unmarshal(body, &me)
	if me.Account.LastLogin == nil {
		t.Fatalf("expected last_login on account, got %s", body)
	}
}

// firstEvent resolves a stream topic the way streamTopic does and returns the
// first value a new subscriber would see.
func firstEvent(t *testing.T, svc *Services, topicOf topicFunc, sess *auth.Session) []byte {
	t.Helper()
	app := fiber.New()
	app.Get("/first", func(c *fiber.Ctx) error {
		if sess != nil {
			auth.WithSession(c, *sess)
		}
		topic, load, err := topicOf(c)
		if err != nil {
			return err
		}
		values, cancel, err := realtime.Follow(c.UserContext(), svc.Hub, topic, load)
		if err != nil {
			return err
		}
		defer cancel()
		select {
		case v := <-values:
			return c.Send(v)
		case <-time.After(time.Second):
			return fiber.ErrRequestTimeout
		}
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/first", nil), -1)
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first event: %d %s", resp.StatusCode, body)
	}
	return body
}

func TestStreamsStartWithCurrentValue(t *testing.T) {
	app, svc := newTestStack(t)
	user := register(t, app, "linus@calivra.test", "linus")

	// Nothing has been published on any of these topics yet.
	var snap struct {
		ID      string          `json:"id"`
		Balance decimal.Decimal `json:"balance"`
	}
	body := firstEvent(t, svc, accountTopic(svc.Accounts), &auth.Session{UserID: user.UserID, Role: user.Role})
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if snap.ID != user.Account.ID || !snap.Balance.IsZero() {
		t.Fatalf("unexpected account snapshot: %s", body)
	}

	var platform struct {
		Bank struct {
			BankName string `json:"bank_name"`
		} `json:"bank_details"`
	}
	body = firstEvent(t, svc, settingsTopic(svc.Settings), nil)
	if err := json.Unmarshal(body, &platform); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if platform.Bank.BankName == "" {
		t.Fatalf("expected default bank details, got %s", body)
	}

	body = firstEvent(t, svc, queueTopic(svc.Feed), nil)
	var counts map[string]any
	if err := json.Unmarshal(body, &counts); err != nil || len(counts) == 0 {
		t.Fatalf("expected queue counts, got %s (%v)", body, err)
	}
}
