package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/realtime"
)

// Service reads and writes platform settings.
type Service struct {
	repo   Repository
	hub    realtime.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a settings service; hub may be nil.
func NewService(repo Repository, hub realtime.Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hub: hub, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// BankDetails returns the deposit bank details with display defaults applied.
func (s *Service) BankDetails(ctx context.Context) (BankDetails, error) {
	var b BankDetails
	if err := s.load(ctx, keyBank, &b); err != nil {
		return BankDetails{}, err
	}
	return b.withDefaults(), nil
}

// CryptoWallets returns the deposit wallet addresses.
func (s *Service) CryptoWallets(ctx context.Context) (CryptoWallets, error) {
	var c CryptoWallets
	if err := s.load(ctx, keyCrypto, &c); err != nil {
		return CryptoWallets{}, err
	}
	return c.withDefaults(), nil
}

// Platform returns both settings documents.
func (s *Service) Platform(ctx context.Context) (Platform, error) {
	bank, err := s.BankDetails(ctx)
	if err != nil {
		return Platform{}, err
	}
	crypto, err := s.CryptoWallets(ctx)
	if err != nil {
		return Platform{}, err
	}
	return Platform{Bank: bank, Crypto: crypto}, nil
}

// SetBankDetails replaces the bank details. Admin only.
func (s *Service) SetBankDetails(ctx context.Context, sess auth.Session, b BankDetails) (BankDetails, error) {
	if !sess.IsAdmin() {
		return BankDetails{}, apperr.ErrForbidden
	}
	b.BankName = strings.TrimSpace(b.BankName)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.AccountName = strings.TrimSpace(b.AccountName)
	if b.BankName == "" || b.AccountNumber == "" || b.AccountName == "" {
		return BankDetails{}, apperr.Invalid("bank_details", "bank name, account number and account name are required")
	}
	b.UpdatedAt, b.UpdatedBy = s.now(), sess.UserID
	if err := s.store(ctx, keyBank, b, sess.UserID); err != nil {
		return BankDetails{}, err
	}
	return b, nil
}

// SetCryptoWallets replaces the wallet addresses. Admin only.
func (s *Service) SetCryptoWallets(ctx context.Context, sess auth.Session, c CryptoWallets) (CryptoWallets, error) {
	if !sess.IsAdmin() {
		return CryptoWallets{}, apperr.ErrForbidden
	}
	c.BTC, c.ETH = strings.TrimSpace(c.BTC), strings.TrimSpace(c.ETH)
	c.USDT, c.USDC = strings.TrimSpace(c.USDT), strings.TrimSpace(c.USDC)
	if c.BTC == "" && c.ETH == "" && c.USDT == "" && c.USDC == "" {
		return CryptoWallets{}, apperr.Invalid("crypto_wallets", "at least one address is required")
	}
	c.UpdatedAt, c.UpdatedBy = s.now(), sess.UserID
	if err := s.store(ctx, keyCrypto, c, sess.UserID); err != nil {
		return CryptoWallets{}, err
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, name string, dst any) error {
	raw, err := s.repo.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (s *Service) store(ctx context.Context, name string, value any, by string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.repo.Put(ctx, name, raw, by); err != nil {
		return err
	}
	if s.hub == nil {
		return nil
	}
	full, err := s.Platform(ctx)
	if err != nil {
		s.logger.Warn("settings reload failed", "error", err)
		return nil
	}
	if err := s.hub.Publish(ctx, realtime.TopicSettings, full); err != nil {
		s.logger.Warn("settings publish failed", "error", err)
	}
	return nil
}
