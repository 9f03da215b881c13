// Package onboarding runs customer registration: the login credential, the
// account document and the first token pair are created in one call.
package onboarding

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/identity"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minUsernameLength = 3

// Form is the registration payload.
type Form struct {
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Country         string `json:"country"`
	DateOfBirth     string `json:"date_of_birth"`
	Gender          string `json:"gender"`
	Address         string `json:"address"`
	City            string `json:"city"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	PIN             string `json:"pin"`
}

// Result is what a new customer receives after registering.
type Result struct {
	UserID  string           `json:"user_id"`
	Role    string           `json:"role"`
	Account account.Snapshot `json:"account"`
	Tokens  auth.TokenPair   `json:"tokens"`
}

type Service struct {
	ids      *identity.Service
	accounts *account.Service
	tokens   *auth.Service
	logger   *slog.Logger
}

func NewService(ids *identity.Service, accounts *account.Service, tokens *auth.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ids: ids, accounts: accounts, tokens: tokens, logger: logger}
}

// Validate checks the form without touching storage.
func (f Form) Validate() error {
	required := []struct{ field, value string }{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"username", f.Username},
		{"email", f.Email},
		{"phone", f.Phone},
		{"country", f.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.Invalid(r.field, "is required")
		}
	}
	if len(strings.TrimSpace(f.Username)) < minUsernameLength {
		return apperr.Invalid("username", "must be at least 3 characters")
	}
	if !emailPattern.MatchString(strings.TrimSpace(f.Email)) {
		return apperr.Invalid("email", "is not a valid address")
	}
	if f.Password != f.ConfirmPassword {
		return apperr.Invalid("confirm_password", "does not match password")
	}
	if !account.ValidPIN(f.PIN) {
		return apperr.Invalid("pin", "must be exactly 4 digits")
	}
	return nil
}

// Register validates f, creates the user and its account, and signs the
// user in.
func (s *Service) Register(ctx context.Context, f Form) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	user, err := s.ids.Register(ctx, identity.Credentials{
		Email:       f.Email,
		Password:    f.Password,
		DisplayName: strings.TrimSpace(f.FirstName + " " + f.LastName),
	})
	if err != nil {
		return Result{}, err
	}

	acct, err := s.accounts.Open(ctx, account.OpenInput{
		OwnerID:     user.ID,
		FirstName:   f.FirstName,
		MiddleName:  f.MiddleName,
		LastName:    f.LastName,
		Username:    f.Username,
		Email:       user.Email,
		Phone:       f.Phone,
		Country:     f.Country,
		DateOfBirth: f.DateOfBirth,
		Gender:      f.Gender,
		Address:     f.Address,
		City:        f.City,
		PIN:         f.PIN,
	})
	if err != nil {
		s.logger.Error("account provisioning failed", "user_id", user.ID, "error", err)
		return Result{}, err
	}

	snap, err := s.accounts.Snapshot(ctx, acct.ID)
	if err != nil {
		return Result{}, err
	}
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("customer registered",
		slog.String("user_id", user.ID),
		slog.String("account_id", acct.ID),
		slog.String("account_number", acct.AccountNumber),
	)
	return Result{UserID: user.ID, Role: user.Role, Account: snap, Tokens: pair}, nil
}
