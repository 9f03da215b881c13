package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/logging"
	"github.com/calivra/calivra_bank/internal/notification"
	"github.com/calivra/calivra_bank/internal/realtime"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (c *captureNotifier) Send(_ context.Context, m notification.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func TestChangedPublishesSnapshotQueueAndNotifies(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	accounts := account.NewService(account.NewMemoryRepository(), l, decimal.NewFromInt(500000))
	acct, err := accounts.Open(ctx, account.OpenInput{OwnerID: "u-1", FirstName: "Ada", LastName: "L", Email: "ada@example.com", PIN: "1234"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.Request(ctx, ledger.Movement{AccountID: acct.ID, Type: ledger.RecordLoan, Amount: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("request: %v", err)
	}

	hub := realtime.NewMemoryHub()
	notifier := &captureNotifier{}
	f := New(accounts, l, hub, notifier, "NGN", logging.Discard())

	f.Changed(ctx, acct.ID, notification.Message{Kind: notification.KindRequested, Subject: "Loan received"})

	ch, cancel, _ := hub.Subscribe(ctx, realtime.AccountTopic(acct.ID))
	defer cancel()
	var snap account.Snapshot
	if err := json.Unmarshal(<-ch, &snap); err != nil || snap.ID != acct.ID {
		t.Fatalf("unexpected snapshot: %+v %v", snap, err)
	}

	qch, qcancel, _ := hub.Subscribe(ctx, realtime.TopicAdminQueue)
	defer qcancel()
	var counts QueueCounts
	if err := json.Unmarshal(<-qch, &counts); err != nil || counts.PendingLoans != 1 {
		t.Fatalf("unexpected counts: %+v %v", counts, err)
	}

	if len(notifier.msgs) != 1 || notifier.msgs[0].Destination != "ada@example.com" || notifier.msgs[0].Data["account_id"] != acct.ID {
		t.Fatalf("unexpected notifications: %+v", notifier.msgs)
	}
	if notifier.msgs[0].Data["currency"] != "NGN" {
		t.Fatalf("expected currency in notification data, got %v", notifier.msgs[0].Data)
	}
}

func TestMoneyUsesConfiguredCurrency(t *testing.T) {
	amount := decimal.RequireFromString("1250.5")
	cases := []struct {
		name string
		feed *Feed
		want string
	}{
		{name: "currency", feed: New(nil, nil, nil, nil, "USD", logging.Discard()), want: "USD 1250.50"},
		{name: "no currency", feed: New(nil, nil, nil, nil, "", logging.Discard()), want: "1250.50"},
		{name: "nil feed", feed: nil, want: "1250.50"},
	}
	for _, tc := range cases {
		if got := tc.feed.Money(amount); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
