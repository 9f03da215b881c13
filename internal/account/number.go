package account

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// ValidPIN reports whether pin is exactly four digits.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// newAccountNumber returns a random 10-digit number without a leading zero.
// Numbers are for display and are not guaranteed unique.
func newAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9_000_000_000))
	if err != nil {
		return "", err
	}
	return n.Add(n, big.NewInt(1_000_000_000)).String(), nil
}
