// Package feed fans ledger mutations out to realtime subscribers and
// notification channels. Failures are logged and never reach the caller.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/notification"
	"github.com/calivra/calivra_bank/internal/realtime"
)

const publishTimeout = 5 * time.Second

// QueueCounts is published on the admin queue topic whenever a record enters
// or leaves Pending.
type QueueCounts struct {
	PendingTransactions int       `json:"pending_transactions"`
	PendingLoans        int       `json:"pending_loans"`
	PendingCards        int       `json:"pending_cards"`
	AsOf                time.Time `json:"as_of"`
}

// Feed publishes account snapshots and queue counts and sends notifications.
type Feed struct {
	accounts *account.Service
	ledger   ledger.Ledger
	hub      realtime.Hub
	notifier notification.Notifier
	currency string
	logger   *slog.Logger
}

// New builds a feed. hub and notifier may be nil. currency prefixes every
// amount written into a notification.
func New(accounts *account.Service, l ledger.Ledger, hub realtime.Hub, notifier notification.Notifier, currency string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{accounts: accounts, ledger: l, hub: hub, notifier: notifier, currency: currency, logger: logger}
}

// Money formats an amount for a notification body, e.g. "NGN 30.00".
func (f *Feed) Money(d decimal.Decimal) string {
	if f == nil || f.currency == "" {
		return d.StringFixed(2)
	}
	return f.currency + " " + d.StringFixed(2)
}

// Changed publishes the new state of accountID and the admin queue, then
// sends msg to the account owner. msg.Kind empty skips the notification.
func (f *Feed) Changed(ctx context.Context, accountID string, msg notification.Message) {
	if f == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	snap, err := f.accounts.Snapshot(ctx, accountID)
	if err != nil {
		f.logger.Warn("feed snapshot failed", "account_id", accountID, "error", err)
	} else if f.hub != nil {
		if err := f.hub.Publish(ctx, realtime.AccountTopic(accountID), snap); err != nil {
			f.logger.Warn("feed publish failed", "account_id", accountID, "error", err)
		}
	}

	f.publishQueue(ctx)

	if msg.Kind == "" || f.notifier == nil {
		return
	}
	if msg.Destination == "" {
		msg.Destination = snap.Email
	}
	if msg.Data == nil {
		msg.Data = map[string]any{}
	}
	msg.Data["account_id"] = accountID
	if f.currency != "" {
		msg.Data["currency"] = f.currency
	}
	if err == nil {
		msg.Data["balance"] = snap.Balance.StringFixed(2)
	}
	if err := f.notifier.Send(ctx, msg); err != nil {
		f.logger.Warn("notification failed", "kind", msg.Kind, "account_id", accountID, "error", err)
	}
}

// Counts returns the current number of Pending records per type.
func (f *Feed) Counts(ctx context.Context) (QueueCounts, error) {
	counts := QueueCounts{AsOf: time.Now().UTC()}
	for _, item := range []struct {
		t   ledger.RecordType
		dst *int
	}{
		{ledger.RecordTransaction, &counts.PendingTransactions},
		{ledger.RecordLoan, &counts.PendingLoans},
		{ledger.RecordCard, &counts.PendingCards},
	} {
		recs, err := f.ledger.List(ctx, ledger.Filter{Type: item.t, Status: ledger.StatusPending})
		if err != nil {
			return QueueCounts{}, err
		}
		*item.dst = len(recs)
	}
	return counts, nil
}

func (f *Feed) publishQueue(ctx context.Context) {
	if f.hub == nil {
		return
	}
	counts, err := f.Counts(ctx)
	if err != nil {
		f.logger.Warn("queue counts failed", "error", err)
		return
	}
	if err := f.hub.Publish(ctx, realtime.TopicAdminQueue, counts); err != nil {
		f.logger.Warn("queue publish failed", "error", err)
	}
}
