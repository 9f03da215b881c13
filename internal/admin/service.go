package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/cards"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/notification"
	"github.com/calivra/calivra_bank/internal/transfers"
)

// UserCounter reports the number of registered users.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service implements the administrative operations. Every method checks the
// session role itself, independent of route middleware.
type Service struct {
	ledger   ledger.Ledger
	accounts *account.Service
	users    UserCounter
	feed     *feed.Feed
	now      func() time.Time
}

func NewService(l ledger.Ledger, accounts *account.Service, users UserCounter, f *feed.Feed) *Service {
	return &Service{ledger: l, accounts: accounts, users: users, feed: f, now: time.Now}
}

// Stats summarises the admin dashboard.
type Stats struct {
	TotalUsers           int `json:"total_users"`
	PendingTransactions  int `json:"pending_transactions"`
	ApprovedTransactions int `json:"approved_transactions"`
	PendingLoans         int `json:"pending_loans"`
	PendingCards         int `json:"pending_cards"`
}

// UserDetails is everything the admin user view shows for one account.
type UserDetails struct {
	Account      account.Snapshot  `json:"account"`
	Transactions []transfers.Entry `json:"transactions"`
	Loans        []ledger.Record   `json:"loans"`
	Cards        []ledger.Record   `json:"cards"`
}

func requireAdmin(sess auth.Session) error {
	if sess.UserID == "" {
		return apperr.ErrUnauthorized
	}
	if !sess.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}

// Approve resolves a Pending record. Card approvals carry freshly generated
// credentials into the same commit.
func (s *Service) Approve(ctx context.Context, sess auth.Session, t ledger.RecordType, id string) (ledger.Outcome, error) {
	if err := requireAdmin(sess); err != nil {
		return ledger.Outcome{}, err
	}
	res := ledger.Resolution{Type: t, RecordID: id, Actor: sess.UserID}
	if t == ledger.RecordCard {
		rec, err := s.ledger.Get(ctx, t, id)
		if err != nil {
			return ledger.Outcome{}, err
		}
		if rec.Status != ledger.StatusPending {
			return ledger.Outcome{}, ledger.ErrAlreadyProcessed
		}
		creds, err := cards.NewCredentials(rec.Details["card_type"], s.now())
		if err != nil {
			return ledger.Outcome{}, err
		}
		res.Patch = creds.Patch()
	}

	out, err := s.ledger.Approve(ctx, res)
	if err != nil {
		return ledger.Outcome{}, err
	}
	s.feed.Changed(ctx, out.Record.AccountID, approvedMessage(out, s.feed.Money))
	return out, nil
}

// Reject resolves a Pending record without touching the balance.
func (s *Service) Reject(ctx context.Context, sess auth.Session, t ledger.RecordType, id string) (ledger.Record, error) {
	if err := requireAdmin(sess); err != nil {
		return ledger.Record{}, err
	}
	rec, err := s.ledger.Reject(ctx, ledger.Resolution{Type: t, RecordID: id, Actor: sess.UserID})
	if err != nil {
		return ledger.Record{}, err
	}
	s.feed.Changed(ctx, rec.AccountID, notification.Message{
		Kind:    notification.KindRejected,
		Subject: displayName(rec) + " rejected",
		Body:    fmt.Sprintf("Your %s of %s was not approved.", displayName(rec), s.feed.Money(rec.Amount)),
		Data:    map[string]any{"record_id": rec.ID, "record_type": string(rec.Type)},
	})
	return rec, nil
}

// AdjustInput describes a direct credit or debit.
type AdjustInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
	ClientTxID  string
}

// Fund credits an account directly. A replayed ClientTxID returns the original
// outcome together with ledger.ErrDuplicateTransaction.
func (s *Service) Fund(ctx context.Context, sess auth.Session, in AdjustInput) (ledger.Outcome, error) {
	return s.adjust(ctx, sess, in, s.ledger.Fund, notification.KindFunded, "Account credited")
}

// Deduct debits an account directly; it never takes the balance below zero.
func (s *Service) Deduct(ctx context.Context, sess auth.Session, in AdjustInput) (ledger.Outcome, error) {
	return s.adjust(ctx, sess, in, s.ledger.Deduct, notification.KindDeducted, "Account debited")
}

func (s *Service) adjust(ctx context.Context, sess auth.Session, in AdjustInput,
	apply func(context.Context, ledger.Adjustment) (ledger.Outcome, error), kind, subject string) (ledger.Outcome, error) {
	if err := requireAdmin(sess); err != nil {
		return ledger.Outcome{}, err
	}
	if !in.Amount.IsPositive() {
		return ledger.Outcome{}, apperr.Invalid("amount", "must be greater than zero")
	}
	if _, err := s.accounts.Get(ctx, in.AccountID); err != nil {
		return ledger.Outcome{}, err
	}
	out, err := apply(ctx, ledger.Adjustment{
		AccountID:   in.AccountID,
		Amount:      in.Amount,
		Actor:       sess.UserID,
		Description: in.Description,
		ClientTxID:  in.ClientTxID,
	})
	if err != nil {
		return out, err
	}
	s.feed.Changed(ctx, in.AccountID, notification.Message{
		Kind:    kind,
		Subject: subject,
		Body:    fmt.Sprintf("%s: %s. New balance %s.", out.Record.Description, s.feed.Money(out.Record.Amount), s.feed.Money(out.Balance)),
		Data:    map[string]any{"record_id": out.Record.ID},
	})
	return out, nil
}

// Users lists every account with its balance.
func (s *Service) Users(ctx context.Context, sess auth.Session) ([]account.Snapshot, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx)
}

// User returns one account with its full history.
func (s *Service) User(ctx context.Context, sess auth.Session, accountID string) (UserDetails, error) {
	if err := requireAdmin(sess); err != nil {
		return UserDetails{}, err
	}
	snap, err := s.accounts.Snapshot(ctx, accountID)
	if err != nil {
		return UserDetails{}, err
	}
	details := UserDetails{Account: snap}
	txs, err := s.ledger.List(ctx, ledger.Filter{AccountID: accountID, Type: ledger.RecordTransaction})
	if err != nil {
		return UserDetails{}, err
	}
	details.Transactions = transfers.Annotate(txs)
	if details.Loans, err = s.ledger.List(ctx, ledger.Filter{AccountID: accountID, Type: ledger.RecordLoan}); err != nil {
		return UserDetails{}, err
	}
	if details.Cards, err = s.ledger.List(ctx, ledger.Filter{AccountID: accountID, Type: ledger.RecordCard}); err != nil {
		return UserDetails{}, err
	}
	return details, nil
}

// Verify records the KYC decision for an account.
func (s *Service) Verify(ctx context.Context, sess auth.Session, accountID string, verified bool) (account.Snapshot, error) {
	if err := requireAdmin(sess); err != nil {
		return account.Snapshot{}, err
	}
	snap, err := s.accounts.SetVerified(ctx, accountID, verified)
	if err != nil {
		return account.Snapshot{}, err
	}
	s.feed.Changed(ctx, accountID, notification.Message{})
	return snap, nil
}

// Stats counts users and queue sizes.
func (s *Service) Stats(ctx context.Context, sess auth.Session) (Stats, error) {
	if err := requireAdmin(sess); err != nil {
		return Stats{}, err
	}
	var (
		stats Stats
		err   error
	)
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return Stats{}, err
	}
	for _, c := range []struct {
		t      ledger.RecordType
		status ledger.Status
		dst    *int
	}{
		{ledger.RecordTransaction, ledger.StatusPending, &stats.PendingTransactions},
		{ledger.RecordTransaction, ledger.StatusApproved, &stats.ApprovedTransactions},
		{ledger.RecordLoan, ledger.StatusPending, &stats.PendingLoans},
		{ledger.RecordCard, ledger.StatusPending, &stats.PendingCards},
	} {
		recs, err := s.ledger.List(ctx, ledger.Filter{Type: c.t, Status: c.status})
		if err != nil {
			return Stats{}, err
		}
		*c.dst = len(recs)
	}
	return stats, nil
}

// Queue lists records of one type, optionally filtered by status.
func (s *Service) Queue(ctx context.Context, sess auth.Session, t ledger.RecordType, status ledger.Status, limit int) ([]ledger.Record, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if status != "" && status != ledger.StatusPending && !status.Terminal() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.ledger.List(ctx, ledger.Filter{Type: t, Status: status, Limit: limit})
}

// Deposits lists transactions whose label marks them as deposits.
func (s *Service) Deposits(ctx context.Context, sess auth.Session, status ledger.Status) ([]transfers.Entry, error) {
	recs, err := s.Queue(ctx, sess, ledger.RecordTransaction, status, 0)
	if err != nil {
		return nil, err
	}
	out := make([]transfers.Entry, 0)
	for _, e := range transfers.Annotate(recs) {
		if e.IsDeposit {
			out = append(out, e)
		}
	}
	return out, nil
}

func approvedMessage(out ledger.Outcome, money func(decimal.Decimal) string) notification.Message {
	rec := out.Record
	body := fmt.Sprintf("Your %s of %s has been approved. New balance %s.", displayName(rec), money(rec.Amount), money(out.Balance))
	if rec.Type == ledger.RecordCard {
		if n := rec.Details["card_number"]; len(n) >= 4 {
			body = fmt.Sprintf("Your %s %s card ending %s is ready. New balance %s.", rec.Details["card_level"], rec.Details["card_type"], n[len(n)-4:], money(out.Balance))
		}
	}
	return notification.Message{
		Kind:    notification.KindApproved,
		Subject: displayName(rec) + " approved",
		Body:    body,
		Data:    map[string]any{"record_id": rec.ID, "record_type": string(rec.Type), "delta": out.Delta.StringFixed(2)},
	}
}

func displayName(rec ledger.Record) string {
	switch rec.Type {
	case ledger.RecordLoan:
		return "Loan"
	case ledger.RecordCard:
		return "Card application"
	default:
		return rec.Label
	}
}

// IsDuplicate reports whether err marks a replayed adjustment.
func IsDuplicate(err error) bool {
	return errors.Is(err, ledger.ErrDuplicateTransaction)
}
