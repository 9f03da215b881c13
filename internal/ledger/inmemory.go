package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	records  map[string]Record
	seq      map[string]int64
	next     int64
	applied  map[string]Outcome
	now      func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development runs without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[string]decimal.Decimal),
		records:  make(map[string]Record),
		seq:      make(map[string]int64),
		applied:  make(map[string]Outcome),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[accountID]; !exists {
		l.balances[accountID] = decimal.Zero
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[accountID]
	if !exists {
		return decimal.Zero, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Request(_ context.Context, m Movement) (Record, error) {
	rec, err := newPendingRecord(m, l.now())
	if err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[m.AccountID]; !ok {
		return Record{}, ErrAccountNotFound
	}
	l.store(rec)
	return cloneRecord(rec), nil
}

func (l *inMemoryLedger) Get(_ context.Context, t RecordType, id string) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[id]
	if !ok || rec.Type != t {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (l *inMemoryLedger) List(_ context.Context, f Filter) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range l.records {
		if f.AccountID != "" && rec.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return l.seq[out[i].ID] > l.seq[out[j].ID]
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (l *inMemoryLedger) Approve(_ context.Context, r Resolution) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[r.RecordID]
	if !ok || rec.Type != r.Type {
		return Outcome{}, ErrNotFound
	}
	if rec.Status != StatusPending {
		return Outcome{}, ErrAlreadyProcessed
	}

	now := l.now()
	delta, audit := approvalPlan(rec, r.Actor, now)
	balance, err := l.applyDelta(rec.AccountID, delta)
	if err != nil {
		return Outcome{}, err
	}

	rec.Status = StatusApproved
	rec.Details = mergeDetails(rec.Details, r.Patch)
	rec.ResolvedBy = r.Actor
	rec.UpdatedAt = now
	l.records[rec.ID] = rec
	if audit != nil {
		l.store(*audit)
	}

	out := Outcome{Record: cloneRecord(rec), Delta: delta, Balance: balance}
	if audit != nil {
		c := cloneRecord(*audit)
		out.Audit = &c
	}
	return out, nil
}

func (l *inMemoryLedger) Reject(_ context.Context, r Resolution) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[r.RecordID]
	if !ok || rec.Type != r.Type {
		return Record{}, ErrNotFound
	}
	if rec.Status != StatusPending {
		return Record{}, ErrAlreadyProcessed
	}
	rec.Status = StatusRejected
	rec.ResolvedBy = r.Actor
	rec.UpdatedAt = l.now()
	l.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (l *inMemoryLedger) Fund(_ context.Context, a Adjustment) (Outcome, error) {
	return l.adjust(a, KindAdminCredit, "Account funded by admin")
}

func (l *inMemoryLedger) Deduct(_ context.Context, a Adjustment) (Outcome, error) {
	return l.adjust(a, KindAdminDebit, "Deducted by admin")
}

func (l *inMemoryLedger) adjust(a Adjustment, kind Kind, fallback string) (Outcome, error) {
	rec, err := adjustmentRecord(a, kind, fallback, l.now())
	if err != nil {
		return Outcome{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := clientKey(a.AccountID, kind, a.ClientTxID)
	if a.ClientTxID != "" {
		if res, exists := l.applied[key]; exists {
			return cloneOutcome(res), ErrDuplicateTransaction
		}
	}

	delta := rec.Effect().Signed(rec.Amount)
	balance, err := l.applyDelta(a.AccountID, delta)
	if err != nil {
		return Outcome{}, err
	}
	l.store(rec)

	res := Outcome{Record: rec, Audit: &rec, Delta: delta, Balance: balance}
	if a.ClientTxID != "" {
		l.applied[key] = cloneOutcome(res)
	}
	return cloneOutcome(res), nil
}

// clientKey scopes a client transaction id to one account and kind.
func clientKey(accountID string, kind Kind, clientTxID string) string {
	return accountID + ":" + string(kind) + ":" + clientTxID
}

func (l *inMemoryLedger) Reconcile(_ context.Context) ([]Drift, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		all = append(all, rec)
	}
	expected := expectedBalances(all)

	var drifts []Drift
	for id, balance := range l.balances {
		if want := expected[id]; !balance.Equal(want) {
			drifts = append(drifts, Drift{AccountID: id, Balance: balance, Expected: want})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].AccountID < drifts[j].AccountID })
	return drifts, nil
}

// applyDelta must be called with l.mu held. A negative delta only applies when
// the resulting balance stays non-negative.
func (l *inMemoryLedger) applyDelta(accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, ok := l.balances[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	next := balance.Add(delta)
	if delta.IsNegative() && next.IsNegative() {
		return decimal.Zero, ErrInsufficientFunds
	}
	l.balances[accountID] = next
	return next, nil
}

func (l *inMemoryLedger) store(rec Record) {
	l.next++
	l.seq[rec.ID] = l.next
	l.records[rec.ID] = rec
}

func cloneRecord(rec Record) Record {
	rec.Details = copyDetails(rec.Details)
	return rec
}

func cloneOutcome(o Outcome) Outcome {
	o.Record = cloneRecord(o.Record)
	if o.Audit != nil {
		a := cloneRecord(*o.Audit)
		o.Audit = &a
	}
	return o
}
