package settings

import (
	"errors"
	"time"
)

const (
	keyBank   = "bank_details"
	keyCrypto = "crypto_wallets"

	defaultBankName    = "Calivra Chase Bank"
	defaultAccountName = "Calivra Chase"
	defaultBTCAddress  = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
)

var ErrNotFound = errors.New("setting not found")

// BankDetails are shown to users making a bank deposit.
type BankDetails struct {
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	UpdatedBy     string    `json:"updated_by,omitempty"`
}

// CryptoWallets are the deposit addresses per asset.
type CryptoWallets struct {
	BTC       string    `json:"btc"`
	ETH       string    `json:"eth"`
	USDT      string    `json:"usdt"`
	USDC      string    `json:"usdc"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Platform is the full settings value published to subscribers.
type Platform struct {
	Bank   BankDetails   `json:"bank_details"`
	Crypto CryptoWallets `json:"crypto_wallets"`
}

func (b BankDetails) withDefaults() BankDetails {
	if b.BankName == "" {
		b.BankName = defaultBankName
	}
	if b.AccountName == "" {
		b.AccountName = defaultAccountName
	}
	return b
}

func (c CryptoWallets) withDefaults() CryptoWallets {
	if c.BTC == "" {
		c.BTC = defaultBTCAddress
	}
	return c
}
