package cards

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/notification"
)

// Fees per card level, debited when the application is approved.
var Fees = map[string]decimal.Decimal{
	"classic":  decimal.Zero,
	"gold":     decimal.NewFromInt(50),
	"platinum": decimal.NewFromInt(100),
}

// Service handles card applications.
type Service struct {
	ledger   ledger.Ledger
	accounts *account.Service
	feed     *feed.Feed
}

func NewService(l ledger.Ledger, accounts *account.Service, f *feed.Feed) *Service {
	return &Service{ledger: l, accounts: accounts, feed: f}
}

type Input struct {
	Type           string
	Level          string
	CardholderName string
}

// Apply records a card application as Pending with the fee of its level.
func (s *Service) Apply(ctx context.Context, sess auth.Session, in Input) (ledger.Record, error) {
	cardType := strings.ToLower(strings.TrimSpace(in.Type))
	if _, ok := prefixes[cardType]; !ok {
		return ledger.Record{}, apperr.Invalid("card_type", "must be visa, mastercard or amex")
	}
	level := strings.ToLower(strings.TrimSpace(in.Level))
	fee, ok := Fees[level]
	if !ok {
		return ledger.Record{}, apperr.Invalid("card_level", "must be classic, gold or platinum")
	}

	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return ledger.Record{}, err
	}
	holder := strings.TrimSpace(in.CardholderName)
	if holder == "" {
		holder = acct.FullName()
	}
	rec, err := s.ledger.Request(ctx, ledger.Movement{
		AccountID: acct.ID,
		Type:      ledger.RecordCard,
		Amount:    fee,
		Details:   map[string]string{"card_type": cardType, "card_level": level, "cardholder_name": holder},
	})
	if err != nil {
		return ledger.Record{}, err
	}
	s.feed.Changed(ctx, acct.ID, notification.Message{
		Kind:    notification.KindRequested,
		Subject: "Card application received",
		Body:    fmt.Sprintf("Your %s %s card application is pending review.", level, cardType),
		Data:    map[string]any{"record_id": rec.ID, "record_type": string(rec.Type)},
	})
	return rec, nil
}

// List returns the caller's card applications; approved ones carry a masked
// number for display.
func (s *Service) List(ctx context.Context, sess auth.Session) ([]ledger.Record, error) {
	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	recs, err := s.ledger.List(ctx, ledger.Filter{AccountID: acct.ID, Type: ledger.RecordCard})
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if n := recs[i].Details["card_number"]; len(n) > 4 {
			recs[i].Details["card_number_masked"] = strings.Repeat("*", len(n)-4) + n[len(n)-4:]
		}
	}
	return recs, nil
}
