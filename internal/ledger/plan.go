package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newPendingRecord validates a movement and builds the record it creates.
func newPendingRecord(m Movement, now time.Time) (Record, error) {
	switch m.Type {
	case RecordTransaction:
		if !m.Kind.Valid() {
			return Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
		}
		if !m.Amount.IsPositive() {
			return Record{}, ErrInvalidAmount
		}
	case RecordLoan:
		if !m.Amount.IsPositive() {
			return Record{}, ErrInvalidAmount
		}
	case RecordCard:
		// free cards carry a zero fee
		if m.Amount.IsNegative() {
			return Record{}, ErrInvalidAmount
		}
	default:
		return Record{}, fmt.Errorf("unsupported record type %q", m.Type)
	}

	rec := Record{
		ID:          uuid.NewString(),
		Type:        m.Type,
		AccountID:   m.AccountID,
		Amount:      m.Amount.Round(2),
		Status:      StatusPending,
		Details:     copyDetails(m.Details),
		Description: m.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	switch m.Type {
	case RecordTransaction:
		rec.Kind = m.Kind
		rec.Label = m.Kind.Label()
		rec.Category = m.Kind.Category()
	case RecordLoan:
		rec.Label = "Loan Request"
		rec.Category = CategoryCredit
	case RecordCard:
		rec.Label = "Card Application"
		rec.Category = CategoryDebit
	}
	return rec, nil
}

// approvalPlan computes the balance delta of approving rec and the synthetic
// audit transaction loans and card applications produce.
func approvalPlan(rec Record, actor string, now time.Time) (decimal.Decimal, *Record) {
	switch rec.Type {
	case RecordLoan:
		purpose := rec.Details["purpose"]
		if purpose == "" {
			purpose = "N/A"
		}
		audit := auditRecord(rec.AccountID, KindLoanDisbursement, rec.Amount, "Loan: "+purpose, actor, now)
		audit.Details["source_id"] = rec.ID
		return rec.Amount, &audit
	case RecordCard:
		desc := fmt.Sprintf("%s %s card", rec.Details["card_level"], rec.Details["card_type"])
		audit := auditRecord(rec.AccountID, KindCardFee, rec.Amount, desc, actor, now)
		audit.Details["source_id"] = rec.ID
		return rec.Amount.Neg(), &audit
	default:
		return rec.Effect().Signed(rec.Amount), nil
	}
}

// auditRecord builds an already-Approved transaction documenting a balance change.
func auditRecord(accountID string, kind Kind, amount decimal.Decimal, description, actor string, now time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		Type:        RecordTransaction,
		AccountID:   accountID,
		Kind:        kind,
		Label:       kind.Label(),
		Category:    kind.Category(),
		Amount:      amount.Round(2),
		Status:      StatusApproved,
		Details:     map[string]string{},
		Description: description,
		ResolvedBy:  actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func adjustmentRecord(a Adjustment, kind Kind, fallback string, now time.Time) (Record, error) {
	if !a.Amount.IsPositive() {
		return Record{}, ErrInvalidAmount
	}
	desc := a.Description
	if desc == "" {
		desc = fallback
	}
	rec := auditRecord(a.AccountID, kind, a.Amount, desc, a.Actor, now)
	if a.ClientTxID != "" {
		rec.Details["client_tx_id"] = a.ClientTxID
	}
	return rec, nil
}

// expectedBalances sums the signed effect of every approved transaction per account.
func expectedBalances(records []Record) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, rec := range records {
		if rec.Type != RecordTransaction || rec.Status != StatusApproved {
			continue
		}
		sums[rec.AccountID] = sums[rec.AccountID].Add(rec.Effect().Signed(rec.Amount))
	}
	return sums
}

func mergeDetails(base, patch map[string]string) map[string]string {
	out := copyDetails(base)
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func copyDetails(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
