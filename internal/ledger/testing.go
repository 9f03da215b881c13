package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that seeds the balance for an account when using
// the in-memory ledger. The seeded amount is not backed by a transaction, so
// Reconcile reports it as drift.
func SeedBalance(l Ledger, accountID string, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[accountID] = amount
	}
}
