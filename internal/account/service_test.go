package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/ledger"
)

func openTestAccount(t *testing.T) (*Service, ledger.Ledger, Account) {
	t.Helper()
	l := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), l, decimal.NewFromInt(500000))
	a, err := svc.Open(context.Background(), OpenInput{
		OwnerID:   "user-1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Email:     "Ada@Example.com",
		Phone:     "+2348000000000",
		Country:   "NG",
		PIN:       "1234",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return svc, l, a
}

func TestOpenDefaults(t *testing.T) {
	svc, _, a := openTestAccount(t)

	if len(a.AccountNumber) != 10 || a.AccountNumber[0] == '0' {
		t.Fatalf("unexpected account number %q", a.AccountNumber)
	}
	if a.AccountType != TypeStandard || a.KYCVerified || !a.TransactionLimit.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("unexpected defaults: %+v", a)
	}
	if a.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %s", a.Email)
	}

	snap, err := svc.Snapshot(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", snap.Balance)
	}
}

func TestOpenRejectsBadPINAndDuplicateOwner(t *testing.T) {
	svc, _, _ := openTestAccount(t)
	ctx := context.Background()

	if _, err := svc.Open(ctx, OpenInput{OwnerID: "user-2", PIN: "12a4"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Open(ctx, OpenInput{OwnerID: "user-1", PIN: "9999"}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected duplicate owner error, got %v", err)
	}
}

func TestVerifyPIN(t *testing.T) {
	svc, _, a := openTestAccount(t)
	ctx := context.Background()

	if err := svc.VerifyPIN(ctx, a.ID, "1234"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.VerifyPIN(ctx, a.ID, "4321"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected invalid pin, got %v", err)
	}
}

func TestUpdateProfileKeepsProtectedFields(t *testing.T) {
	svc, l, a := openTestAccount(t)
	ctx := context.Background()
	if _, err := l.Fund(ctx, ledger.Adjustment{AccountID: a.ID, Amount: decimal.NewFromInt(75)}); err != nil {
		t.Fatalf("fund: %v", err)
	}

	city := "Lagos"
	snap, err := svc.UpdateProfile(ctx, a.ID, Profile{City: &city})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if snap.City != "Lagos" || snap.FirstName != "Ada" {
		t.Fatalf("unexpected profile: %+v", snap)
	}
	if !snap.Balance.Equal(decimal.NewFromInt(75)) || snap.AccountNumber != a.AccountNumber {
		t.Fatalf("protected fields changed: %+v", snap)
	}

	empty := ""
	if _, err := svc.UpdateProfile(ctx, a.ID, Profile{FirstName: &empty}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetVerifiedAndList(t *testing.T) {
	svc, _, a := openTestAccount(t)
	ctx := context.Background()

	snap, err := svc.SetVerified(ctx, a.ID, true)
	if err != nil || !snap.KYCVerified {
		t.Fatalf("set verified: %+v %v", snap, err)
	}
	all, err := svc.List(ctx)
	if err != nil || len(all) != 1 || all[0].ID != a.ID {
		t.Fatalf("list: %+v %v", all, err)
	}
	if _, err := svc.SetVerified(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
