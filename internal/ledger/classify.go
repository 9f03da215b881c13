package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Effect is the sign a transaction has on its account balance.
type Effect int

const (
	EffectNone Effect = iota
	EffectPositive
	EffectNegative
)

func (e Effect) String() string {
	switch e {
	case EffectPositive:
		return "credit"
	case EffectNegative:
		return "debit"
	default:
		return "none"
	}
}

// Signed returns amount with the effect's sign applied.
func (e Effect) Signed(amount decimal.Decimal) decimal.Decimal {
	switch e {
	case EffectPositive:
		return amount
	case EffectNegative:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}

// IsDeposit reports whether a transaction label denotes a deposit. The match is
// a case-insensitive substring test on the free-text label.
func IsDeposit(label string) bool {
	return strings.Contains(strings.ToLower(label), "deposit")
}

// BalanceEffect classifies a stored transaction. The substring checks are case
// sensitive and Debit wins over Credit; stored records depend on this exact rule.
func BalanceEffect(label, category string) Effect {
	if category == string(CategoryDebit) || strings.Contains(label, "Transfer") || strings.Contains(label, "withdrawal") {
		return EffectNegative
	}
	if category == string(CategoryCredit) || strings.Contains(label, "Deposit") {
		return EffectPositive
	}
	return EffectNone
}

// Kind is the closed set of transaction kinds accepted at creation time. Every
// kind fixes the label and category written to the record.
type Kind string

const (
	KindLocalTransfer    Kind = "local_transfer"
	KindWireTransfer     Kind = "wire_transfer"
	KindPayPalTransfer   Kind = "paypal_transfer"
	KindCryptoTransfer   Kind = "crypto_transfer"
	KindBankDeposit      Kind = "bank_deposit"
	KindCryptoDeposit    Kind = "crypto_deposit"
	KindCardDeposit      Kind = "card_deposit"
	KindCheckDeposit     Kind = "check_deposit"
	KindWithdrawal       Kind = "withdrawal"
	KindAdminCredit      Kind = "admin_credit"
	KindAdminDebit       Kind = "admin_debit"
	KindLoanDisbursement Kind = "loan_disbursement"
	KindCardFee          Kind = "card_fee"
)

type kindSpec struct {
	label    string
	category Category
}

var kinds = map[Kind]kindSpec{
	KindLocalTransfer:    {"Local Transfer", CategoryDebit},
	KindWireTransfer:     {"Wire Transfer", CategoryDebit},
	KindPayPalTransfer:   {"PayPal Transfer", CategoryDebit},
	KindCryptoTransfer:   {"Crypto Transfer", CategoryDebit},
	KindBankDeposit:      {"Bank Deposit", CategoryCredit},
	KindCryptoDeposit:    {"Crypto Deposit", CategoryCredit},
	KindCardDeposit:      {"Card Deposit", CategoryCredit},
	KindCheckDeposit:     {"Check Deposit", CategoryCredit},
	KindWithdrawal:       {"Cash withdrawal", CategoryDebit},
	KindAdminCredit:      {"Admin Credit", CategoryCredit},
	KindAdminDebit:       {"Admin Debit", CategoryDebit},
	KindLoanDisbursement: {"Loan Approved", CategoryCredit},
	KindCardFee:          {"Card Fee", CategoryDebit},
}

// ParseKind validates a kind received from a client.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Label is the display label stored on records of this kind.
func (k Kind) Label() string {
	return kinds[k].label
}

// Category is the direction stored on records of this kind.
func (k Kind) Category() Category {
	return kinds[k].category
}

// UserRequestable reports whether account owners may submit this kind themselves.
func (k Kind) UserRequestable() bool {
	switch k {
	case KindAdminCredit, KindAdminDebit, KindLoanDisbursement, KindCardFee:
		return false
	default:
		return k.Valid()
	}
}
