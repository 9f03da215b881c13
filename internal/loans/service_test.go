package loans

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/ledger"
)

func TestApplyAndList(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	accounts := account.NewService(account.NewMemoryRepository(), l, decimal.NewFromInt(500000))
	acct, err := accounts.Open(ctx, account.OpenInput{OwnerID: "user-1", FirstName: "Ada", LastName: "L", PIN: "1234"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := NewService(l, accounts, nil)
	sess := auth.Session{UserID: "user-1"}

	if _, err := svc.Apply(ctx, sess, Input{Amount: decimal.NewFromInt(100)}); !apperr.IsValidation(err) {
		t.Fatalf("expected purpose validation, got %v", err)
	}
	if _, err := svc.Apply(ctx, sess, Input{Amount: decimal.Zero, Purpose: "Car"}); !apperr.IsValidation(err) {
		t.Fatalf("expected amount validation, got %v", err)
	}

	rec, err := svc.Apply(ctx, sess, Input{Amount: decimal.NewFromInt(2500), Purpose: " Car ", DurationMonths: 12})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.Status != ledger.StatusPending || rec.Details["purpose"] != "Car" || rec.Details["duration_months"] != "12" {
		t.Fatalf("unexpected loan: %+v", rec)
	}

	balance, _ := l.Balance(ctx, acct.ID)
	if !balance.IsZero() {
		t.Fatalf("loan application changed balance: %s", balance)
	}

	loans, err := svc.List(ctx, sess)
	if err != nil || len(loans) != 1 {
		t.Fatalf("list: %+v %v", loans, err)
	}
}
