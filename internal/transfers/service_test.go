package transfers

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/logging"
)

func setup(t *testing.T) (*Service, ledger.Ledger, auth.Session, account.Account) {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewInMemory()
	accounts := account.NewService(account.NewMemoryRepository(), l, decimal.NewFromInt(1000))
	acct, err := accounts.Open(ctx, account.OpenInput{OwnerID: "user-1", FirstName: "Ada", LastName: "L", PIN: "1234"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.Fund(ctx, ledger.Adjustment{AccountID: acct.ID, Amount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("fund: %v", err)
	}
	svc := NewService(l, accounts, feed.New(accounts, l, nil, nil, "NGN", logging.Discard()))
	return svc, l, auth.Session{UserID: "user-1"}, acct
}

func localTransfer(amount int64, pin string) TransferInput {
	return TransferInput{
		Kind:   "local_transfer",
		Amount: decimal.NewFromInt(amount),
		PIN:    pin,
		Details: map[string]string{
			"beneficiary_name": "Grace",
			"account_number":   "0123456789",
			"bank_name":        "Zenith",
		},
	}
}

func TestRequestTransferIsPendingWithoutBalanceEffect(t *testing.T) {
	svc, l, sess, acct := setup(t)
	ctx := context.Background()

	rec, err := svc.RequestTransfer(ctx, sess, localTransfer(500, "1234"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if rec.Status != ledger.StatusPending || rec.Label != "Local Transfer" || rec.Category != ledger.CategoryDebit {
		t.Fatalf("unexpected record: %+v", rec)
	}
	balance, _ := l.Balance(ctx, acct.ID)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance changed on request: %s", balance)
	}
}

func TestRequestTransferChecks(t *testing.T) {
	svc, _, sess, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.RequestTransfer(ctx, sess, localTransfer(50, "9999")); !errors.Is(err, account.ErrInvalidPIN) {
		t.Fatalf("expected invalid pin, got %v", err)
	}
	if _, err := svc.RequestTransfer(ctx, sess, localTransfer(5000, "1234")); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected limit exceeded, got %v", err)
	}

	missing := localTransfer(50, "1234")
	delete(missing.Details, "bank_name")
	if _, err := svc.RequestTransfer(ctx, sess, missing); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	deposit := localTransfer(50, "1234")
	deposit.Kind = "bank_deposit"
	if _, err := svc.RequestTransfer(ctx, sess, deposit); !apperr.IsValidation(err) {
		t.Fatalf("expected deposit kind to be refused as transfer, got %v", err)
	}

	admin := localTransfer(50, "1234")
	admin.Kind = "admin_credit"
	if _, err := svc.RequestTransfer(ctx, sess, admin); !apperr.IsValidation(err) {
		t.Fatalf("expected admin kind to be refused, got %v", err)
	}
}

func TestRequestDepositAndHistory(t *testing.T) {
	svc, _, sess, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.RequestDeposit(ctx, sess, DepositInput{Kind: "card_deposit", Amount: decimal.NewFromInt(20), Details: map[string]string{"card_last4": "12a4"}}); !apperr.IsValidation(err) {
		t.Fatalf("expected last4 validation, got %v", err)
	}
	rec, err := svc.RequestDeposit(ctx, sess, DepositInput{Kind: "crypto_deposit", Amount: decimal.NewFromInt(20), Details: map[string]string{"crypto_type": "BTC"}})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	history, err := svc.History(ctx, sess, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != rec.ID {
		t.Fatalf("expected deposit first of two entries, got %+v", history)
	}
	if !history[0].IsDeposit || history[0].Effect != "credit" {
		t.Fatalf("unexpected annotation: %+v", history[0])
	}
	if history[1].Label != "Admin Credit" || history[1].IsDeposit {
		t.Fatalf("unexpected seed entry: %+v", history[1])
	}
}
