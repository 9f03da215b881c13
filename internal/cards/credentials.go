package cards

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

var prefixes = map[string]string{
	"visa":       "4",
	"mastercard": "5",
	"amex":       "3",
}

// Credentials are generated when a card application is approved.
type Credentials struct {
	Number string
	CVV    string
	Expiry string
}

// Patch renders the credentials as record details.
func (c Credentials) Patch() map[string]string {
	return map[string]string{"card_number": c.Number, "cvv": c.CVV, "expiry_date": c.Expiry}
}

// NewCredentials issues a 16-digit number with the network prefix, a CVV in
// 100..999 and an MM/YY expiry three years after now.
func NewCredentials(cardType string, now time.Time) (Credentials, error) {
	prefix, ok := prefixes[strings.ToLower(cardType)]
	if !ok {
		return Credentials{}, fmt.Errorf("unknown card type %q", cardType)
	}
	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < 15; i++ {
		d, err := randInt(10)
		if err != nil {
			return Credentials{}, err
		}
		b.WriteByte(byte('0' + d))
	}
	cvv, err := randInt(900)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		Number: b.String(),
		CVV:    fmt.Sprintf("%d", 100+cvv),
		Expiry: now.AddDate(3, 0, 0).Format("01/06"),
	}, nil
}

func randInt(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("card credentials: %w", err)
	}
	return v.Int64(), nil
}
