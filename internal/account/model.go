package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const TypeStandard = "Standard"

var (
	ErrNotFound   = errors.New("account not found")
	ErrExists     = errors.New("account already exists for owner")
	ErrInvalidPIN = errors.New("invalid transaction PIN")
)

// Account is the customer profile document. The ledger balance lives beside it
// under the same id.
type Account struct {
	ID               string
	OwnerID          string
	FirstName        string
	MiddleName       string
	LastName         string
	Username         string
	Email            string
	Phone            string
	Country          string
	DateOfBirth      string
	Gender           string
	Address          string
	City             string
	AccountNumber    string
	AccountType      string
	TransactionLimit decimal.Decimal
	PINHash          []byte
	KYCVerified      bool
	CreatedAt        time.Time
	LastLogin        *time.Time
}

// FullName joins the name parts that are set.
func (a Account) FullName() string {
	name := a.FirstName
	if a.MiddleName != "" {
		name += " " + a.MiddleName
	}
	if a.LastName != "" {
		name += " " + a.LastName
	}
	return name
}

// Profile carries the user-editable fields. Nil fields are left unchanged.
type Profile struct {
	FirstName   *string `json:"first_name"`
	MiddleName  *string `json:"middle_name"`
	LastName    *string `json:"last_name"`
	Phone       *string `json:"phone"`
	Country     *string `json:"country"`
	DateOfBirth *string `json:"date_of_birth"`
	Gender      *string `json:"gender"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
}

func (p Profile) apply(a *Account) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.FirstName, p.FirstName)
	set(&a.MiddleName, p.MiddleName)
	set(&a.LastName, p.LastName)
	set(&a.Phone, p.Phone)
	set(&a.Country, p.Country)
	set(&a.DateOfBirth, p.DateOfBirth)
	set(&a.Gender, p.Gender)
	set(&a.Address, p.Address)
	set(&a.City, p.City)
}

// Snapshot is an account with its committed balance, as published to
// subscribers and returned by the dashboard endpoints.
type Snapshot struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"owner_id"`
	FirstName        string          `json:"first_name"`
	MiddleName       string          `json:"middle_name,omitempty"`
	LastName         string          `json:"last_name"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Country          string          `json:"country"`
	DateOfBirth      string          `json:"date_of_birth,omitempty"`
	Gender           string          `json:"gender,omitempty"`
	Address          string          `json:"address,omitempty"`
	City             string          `json:"city,omitempty"`
	AccountNumber    string          `json:"account_number"`
	AccountType      string          `json:"account_type"`
	TransactionLimit decimal.Decimal `json:"transaction_limit"`
	KYCVerified      bool            `json:"kyc_verified"`
	Balance          decimal.Decimal `json:"balance"`
	CreatedAt        time.Time       `json:"created_at"`
	LastLogin        *time.Time      `json:"last_login,omitempty"`
}

func snapshotOf(a Account, balance decimal.Decimal) Snapshot {
	return Snapshot{
		ID:               a.ID,
		OwnerID:          a.OwnerID,
		FirstName:        a.FirstName,
		MiddleName:       a.MiddleName,
		LastName:         a.LastName,
		Username:         a.Username,
		Email:            a.Email,
		Phone:            a.Phone,
		Country:          a.Country,
		DateOfBirth:      a.DateOfBirth,
		Gender:           a.Gender,
		Address:          a.Address,
		City:             a.City,
		AccountNumber:    a.AccountNumber,
		AccountType:      a.AccountType,
		TransactionLimit: a.TransactionLimit,
		KYCVerified:      a.KYCVerified,
		Balance:          balance,
		CreatedAt:        a.CreatedAt,
		LastLogin:        a.LastLogin,
	}
}
