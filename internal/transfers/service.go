package transfers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/notification"
)

// ErrLimitExceeded means the amount is above the account's transaction limit.
var ErrLimitExceeded = errors.New("amount exceeds transaction limit")

var last4Pattern = regexp.MustCompile(`^\d{4}$`)

// required lists the detail fields each user-requestable kind must carry.
var required = map[ledger.Kind][]string{
	ledger.KindLocalTransfer:  {"beneficiary_name", "account_number", "bank_name"},
	ledger.KindWireTransfer:   {"beneficiary_name", "account_number", "bank_name", "swift_code"},
	ledger.KindPayPalTransfer: {"paypal_email"},
	ledger.KindCryptoTransfer: {"crypto_type", "wallet_address"},
	ledger.KindWithdrawal:     nil,
	ledger.KindBankDeposit:    nil,
	ledger.KindCryptoDeposit:  {"crypto_type"},
	ledger.KindCardDeposit:    {"card_last4"},
	ledger.KindCheckDeposit:   {"check_number"},
}

// Service records user-initiated movement requests. Nothing it does changes a
// balance; requests wait in Pending for an administrator.
type Service struct {
	ledger   ledger.Ledger
	accounts *account.Service
	feed     *feed.Feed
}

// NewService constructs a transfers service.
func NewService(l ledger.Ledger, accounts *account.Service, f *feed.Feed) *Service {
	return &Service{ledger: l, accounts: accounts, feed: f}
}

// TransferInput captures an outgoing transfer or withdrawal request.
type TransferInput struct {
	Kind    string
	Amount  decimal.Decimal
	PIN     string
	Note    string
	Details map[string]string
}

// DepositInput captures a deposit the user declares having made.
type DepositInput struct {
	Kind    string
	Amount  decimal.Decimal
	Note    string
	Details map[string]string
}

// Entry is a transaction annotated with its display classification.
type Entry struct {
	ledger.Record
	IsDeposit bool   `json:"is_deposit"`
	Effect    string `json:"effect"`
}

// RequestTransfer validates and records an outgoing transfer as Pending. The
// amount is checked against the transaction limit but not the balance.
func (s *Service) RequestTransfer(ctx context.Context, sess auth.Session, in TransferInput) (ledger.Record, error) {
	kind, err := parseKind(in.Kind, false)
	if err != nil {
		return ledger.Record{}, err
	}
	details, err := validate(kind, in.Amount, in.Details)
	if err != nil {
		return ledger.Record{}, err
	}
	if in.PIN == "" {
		return ledger.Record{}, apperr.Invalid("pin", "is required")
	}

	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := s.accounts.VerifyPIN(ctx, acct.ID, in.PIN); err != nil {
		return ledger.Record{}, err
	}
	if in.Amount.GreaterThan(acct.TransactionLimit) {
		return ledger.Record{}, fmt.Errorf("%w of %s", ErrLimitExceeded, acct.TransactionLimit.StringFixed(2))
	}
	return s.request(ctx, acct.ID, kind, in.Amount, in.Note, details)
}

// RequestDeposit records a declared deposit as Pending.
func (s *Service) RequestDeposit(ctx context.Context, sess auth.Session, in DepositInput) (ledger.Record, error) {
	kind, err := parseKind(in.Kind, true)
	if err != nil {
		return ledger.Record{}, err
	}
	details, err := validate(kind, in.Amount, in.Details)
	if err != nil {
		return ledger.Record{}, err
	}
	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return ledger.Record{}, err
	}
	return s.request(ctx, acct.ID, kind, in.Amount, in.Note, details)
}

// History returns the caller's transactions, newest first.
func (s *Service) History(ctx context.Context, sess auth.Session, limit int) ([]Entry, error) {
	acct, err := s.accounts.GetByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	recs, err := s.ledger.List(ctx, ledger.Filter{AccountID: acct.ID, Type: ledger.RecordTransaction, Limit: limit})
	if err != nil {
		return nil, err
	}
	return Annotate(recs), nil
}

// Annotate attaches the deposit flag and balance effect to each record.
func Annotate(recs []ledger.Record) []Entry {
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, Entry{Record: r, IsDeposit: ledger.IsDeposit(r.Label), Effect: r.Effect().String()})
	}
	return out
}

func (s *Service) request(ctx context.Context, accountID string, kind ledger.Kind, amount decimal.Decimal, note string, details map[string]string) (ledger.Record, error) {
	rec, err := s.ledger.Request(ctx, ledger.Movement{
		AccountID:   accountID,
		Type:        ledger.RecordTransaction,
		Kind:        kind,
		Amount:      amount,
		Details:     details,
		Description: strings.TrimSpace(note),
	})
	if err != nil {
		return ledger.Record{}, err
	}
	s.feed.Changed(ctx, accountID, notification.Message{
		Kind:    notification.KindRequested,
		Subject: rec.Label + " received",
		Body:    fmt.Sprintf("Your %s of %s is pending review.", rec.Label, s.feed.Money(rec.Amount)),
		Data:    map[string]any{"record_id": rec.ID, "record_type": string(rec.Type)},
	})
	return rec, nil
}

func parseKind(raw string, deposit bool) (ledger.Kind, error) {
	kind, err := ledger.ParseKind(raw)
	if err != nil || !kind.UserRequestable() {
		return "", apperr.Invalid("kind", fmt.Sprintf("unsupported kind %q", raw))
	}
	if ledger.IsDeposit(kind.Label()) != deposit {
		if deposit {
			return "", apperr.Invalid("kind", "not a deposit kind")
		}
		return "", apperr.Invalid("kind", "not a transfer kind")
	}
	return kind, nil
}

func validate(kind ledger.Kind, amount decimal.Decimal, in map[string]string) (map[string]string, error) {
	if !amount.IsPositive() {
		return nil, apperr.Invalid("amount", "must be greater than zero")
	}
	details := make(map[string]string, len(in))
	for k, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			details[k] = v
		}
	}
	for _, field := range required[kind] {
		if details[field] == "" {
			return nil, apperr.Invalid(field, "is required")
		}
	}
	if last4, ok := details["card_last4"]; ok && !last4Pattern.MatchString(last4) {
		return nil, apperr.Invalid("card_last4", "must be 4 digits")
	}
	return details, nil
}
