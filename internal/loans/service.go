package loans

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/notification"
)

// Service handles loan applications.
type Service struct {
	ledger   ledger.Ledger
	accounts *account.Service
	feed     *feed.Feed
}

func NewService(l ledger.Ledger, accounts *account.Service, f *feed.Feed) *Service {
	return &Service{ledger: l, accounts: accounts, feed: f}
}

type Input struct {
	Amount         decimal.Decimal
	Purpose        string
	DurationMonths int
}

// Apply records a loan application as Pending.
func (s *Service) Apply(ctx context.Context, sess auth.Session, in Input) (ledger.Record, error) {
	if !in.Amount.IsPositive() {
		return ledger.Record{}, apperr.Invalid("amount", "must be greater than zero")
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return ledger.Record{}, apperr.Invalid("purpose", "is required")
	}
	if in.DurationMonths < 0 {
		return ledger.Record{}, apperr.Invalid("duration_months", "must not be negative")
	}

	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return ledger.Record{}, err
	}
	details := map[string]string{"purpose": purpose}
	if in.DurationMonths > 0 {
		details["duration_months"] = strconv.Itoa(in.DurationMonths)
	}
	rec, err := s.ledger.Request(ctx, ledger.Movement{
		AccountID: acct.ID,
		Type:      ledger.RecordLoan,
		Amount:    in.Amount,
		Details:   details,
	})
	if err != nil {
		return ledger.Record{}, err
	}
	s.feed.Changed(ctx, acct.ID, notification.Message{
		Kind:    notification.KindRequested,
		Subject: "Loan application received",
		Body:    fmt.Sprintf("Your loan application of %s for %s is pending review.", s.feed.Money(rec.Amount), purpose),
		Data:    map[string]any{"record_id": rec.ID, "record_type": string(rec.Type)},
	})
	return rec, nil
}

// List returns the caller's loan applications, newest first.
func (s *Service) List(ctx context.Context, sess auth.Session) ([]ledger.Record, error) {
	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, ledger.Filter{AccountID: acct.ID, Type: ledger.RecordLoan})
}
