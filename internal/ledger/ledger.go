package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when a debit would take the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the client transaction identifier was
	// already applied; the original outcome is returned alongside it.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAlreadyProcessed is returned when approving or rejecting a record that
	// is no longer Pending. Nothing is mutated.
	ErrAlreadyProcessed = errors.New("record already processed")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAccountNotFound means no balance exists for the account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount rejects zero, negative or malformed amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnknownKind rejects transaction kinds outside the closed set.
	ErrUnknownKind = errors.New("unknown transaction kind")
)

// Status is the lifecycle state of a record. Approved and Rejected are terminal.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Category is the direction of a transaction as stored alongside its label.
type Category string

const (
	CategoryCredit Category = "Credit"
	CategoryDebit  Category = "Debit"
)

// RecordType distinguishes the three kinds of approvable records.
type RecordType string

const (
	RecordTransaction RecordType = "transaction"
	RecordLoan        RecordType = "loan"
	RecordCard        RecordType = "card"
)

// ParseRecordType maps a path segment onto a RecordType.
func ParseRecordType(s string) (RecordType, bool) {
	switch s {
	case "transaction", "transactions":
		return RecordTransaction, true
	case "loan", "loans":
		return RecordLoan, true
	case "card", "cards":
		return RecordCard, true
	default:
		return "", false
	}
}

// Record is a transaction, loan or card application owned by one account.
// For loans Amount is the principal; for card applications it is the fee.
type Record struct {
	ID          string            `json:"id"`
	Type        RecordType        `json:"record_type"`
	AccountID   string            `json:"account_id"`
	Kind        Kind              `json:"kind,omitempty"`
	Label       string            `json:"type"`
	Category    Category          `json:"category"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      Status            `json:"status"`
	Details     map[string]string `json:"details,omitempty"`
	Description string            `json:"description,omitempty"`
	ResolvedBy  string            `json:"resolved_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Effect applies the display classification rule to the record.
func (r Record) Effect() Effect {
	return BalanceEffect(r.Label, string(r.Category))
}

// Movement describes a request that enters the ledger as Pending.
type Movement struct {
	AccountID   string
	Type        RecordType
	Kind        Kind
	Amount      decimal.Decimal
	Details     map[string]string
	Description string
}

// Resolution identifies a Pending record and the administrator resolving it.
// Patch is merged into the record details on approval (card credentials).
type Resolution struct {
	Type     RecordType
	RecordID string
	Actor    string
	Patch    map[string]string
}

// Adjustment is a direct administrative credit or debit.
type Adjustment struct {
	AccountID   string
	Amount      decimal.Decimal
	Actor       string
	Description string
	ClientTxID  string
}

// Outcome captures the committed effect of an approval or adjustment.
type Outcome struct {
	Record  Record          `json:"record"`
	Audit   *Record         `json:"audit,omitempty"`
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	AccountID string
	Type      RecordType
	Status    Status
	Limit     int
}

// Drift reports an account whose balance disagrees with its approved history.
type Drift struct {
	AccountID string
	Balance   decimal.Decimal
	Expected  decimal.Decimal
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
//
// Approve, Fund and Deduct commit the status transition, the balance delta and
// any audit record together; a failure leaves none of them applied.
type Ledger interface {
	EnsureAccount(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Request(ctx context.Context, m Movement) (Record, error)
	Get(ctx context.Context, t RecordType, id string) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
	Approve(ctx context.Context, r Resolution) (Outcome, error)
	Reject(ctx context.Context, r Resolution) (Record, error)
	Fund(ctx context.Context, a Adjustment) (Outcome, error)
	Deduct(ctx context.Context, a Adjustment) (Outcome, error)
	Reconcile(ctx context.Context) ([]Drift, error)
}
