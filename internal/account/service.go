package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/ledger"
)

// Service exposes account operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
	limit  decimal.Decimal
	now    func() time.Time
}

// NewService builds an account service. limit is the transaction limit given
// to new accounts.
func NewService(repo Repository, l ledger.Ledger, limit decimal.Decimal) *Service {
	return &Service{repo: repo, ledger: l, limit: limit, now: func() time.Time { return time.Now().UTC() }}
}

// OpenInput captures the profile collected at registration.
type OpenInput struct {
	OwnerID     string
	FirstName   string
	MiddleName  string
	LastName    string
	Username    string
	Email       string
	Phone       string
	Country     string
	DateOfBirth string
	Gender      string
	Address     string
	City        string
	PIN         string
}

// Open provisions the account document and its ledger balance.
func (s *Service) Open(ctx context.Context, in OpenInput) (Account, error) {
	if in.OwnerID == "" {
		return Account{}, apperr.Invalid("owner_id", "is required")
	}
	if !ValidPIN(in.PIN) {
		return Account{}, apperr.Invalid("pin", "must be exactly 4 digits")
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(in.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	number, err := newAccountNumber()
	if err != nil {
		return Account{}, fmt.Errorf("generate account number: %w", err)
	}

	a := Account{
		ID:               uuid.NewString(),
		OwnerID:          in.OwnerID,
		FirstName:        strings.TrimSpace(in.FirstName),
		MiddleName:       strings.TrimSpace(in.MiddleName),
		LastName:         strings.TrimSpace(in.LastName),
		Username:         strings.TrimSpace(in.Username),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:            strings.TrimSpace(in.Phone),
		Country:          strings.TrimSpace(in.Country),
		DateOfBirth:      in.DateOfBirth,
		Gender:           in.Gender,
		Address:          strings.TrimSpace(in.Address),
		City:             strings.TrimSpace(in.City),
		AccountNumber:    number,
		AccountType:      TypeStandard,
		TransactionLimit: s.limit,
		PINHash:          pinHash,
		CreatedAt:        s.now(),
	}

	if err := s.ledger.EnsureAccount(ctx, a.ID); err != nil {
		return Account{}, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Get retrieves account metadata.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// GetByOwner retrieves the account owned by a user.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Account, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// Snapshot returns the account together with its committed balance.
func (s *Service) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	balance, err := s.ledger.Balance(ctx, a.ID)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(a, balance), nil
}

// List returns every account with its balance, for the admin users table.
func (s *Service) List(ctx context.Context) ([]Snapshot, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(accounts))
	for _, a := range accounts {
		balance, err := s.ledger.Balance(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", a.ID, err)
		}
		out = append(out, snapshotOf(a, balance))
	}
	return out, nil
}

// UpdateProfile changes profile fields only; balance, limit, PIN and
// verification are never touched here.
func (s *Service) UpdateProfile(ctx context.Context, id string, p Profile) (Snapshot, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	p.apply(&a)
	if strings.TrimSpace(a.FirstName) == "" || strings.TrimSpace(a.LastName) == "" {
		return Snapshot{}, apperr.Invalid("name", "first and last name are required")
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(ctx, id)
}

// SetVerified records the KYC decision of an administrator.
func (s *Service) SetVerified(ctx context.Context, id string, verified bool) (Snapshot, error) {
	if err := s.repo.SetVerified(ctx, id, verified); err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(ctx, id)
}

// VerifyPIN checks the transaction PIN of an account.
func (s *Service) VerifyPIN(ctx context.Context, id, pin string) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(a.PINHash, []byte(pin)) != nil {
		return ErrInvalidPIN
	}
	return nil
}

// Touch records a login on the account.
func (s *Service) Touch(ctx context.Context, id string) error {
	return s.repo.TouchLogin(ctx, id, s.now())
}
