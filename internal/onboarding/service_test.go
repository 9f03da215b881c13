package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/config"
	"github.com/calivra/calivra_bank/internal/identity"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/logging"
)

func newTestService() (*Service, *auth.Service) {
	cfg := config.Config{
		JWTSecret:      "access-secret",
		RefreshSecret:  "refresh-secret",
		AccessTokenTTL: time.Minute,
		RefreshTTL:     time.Hour,
	}
	ids := identity.NewService(identity.NewMemoryRepository(), nil, nil, nil)
	accounts := account.NewService(account.NewMemoryRepository(), ledger.NewInMemory(), decimal.NewFromInt(500000))
	tokens := auth.NewService(cfg, ids)
	return NewService(ids, accounts, tokens, logging.Discard()), tokens
}

func validForm() Form {
	return Form{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Username:        "ada",
		Email:           "ada@example.com",
		Phone:           "+2348000000000",
		Country:         "NG",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		PIN:             "1234",
	}
}

func TestRegister(t *testing.T) {
	svc, tokens := newTestService()
	ctx := context.Background()

	res, err := svc.Register(ctx, validForm())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Account.OwnerID != res.UserID || !res.Account.Balance.IsZero() || res.Account.AccountType != account.TypeStandard {
		t.Fatalf("unexpected account: %+v", res.Account)
	}
	sess, err := tokens.Authorize(ctx, res.Tokens.AccessToken)
	if err != nil || sess.UserID != res.UserID {
		t.Fatalf("expected usable access token, got %+v (%v)", sess, err)
	}

	if _, err := svc.Register(ctx, validForm()); !errors.Is(err, identity.ErrEmailInUse) {
		t.Fatalf("expected email in use, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*Form)
	}{
		{"first_name", func(f *Form) { f.FirstName = " " }},
		{"last_name", func(f *Form) { f.LastName = "" }},
		{"username", func(f *Form) { f.Username = "ab" }},
		{"phone", func(f *Form) { f.Phone = "" }},
		{"country", func(f *Form) { f.Country = "" }},
		{"email", func(f *Form) { f.Email = "ada@example" }},
		{"confirm_password", func(f *Form) { f.ConfirmPassword = "other" }},
		{"pin", func(f *Form) { f.PIN = "12a4" }},
	}
	for _, tc := range cases {
		f := validForm()
		tc.mutate(&f)
		err := f.Validate()
		var v *apperr.ValidationError
		if !errors.As(err, &v) || v.Field != tc.field {
			t.Errorf("%s: expected validation error on field, got %v", tc.field, err)
		}
	}
}
