package models

import (
	"fmt"
	"math/big"
	"strings"
)

// amountScale is the number of fractional digits amounts are stored with.
// Monetary values travel as decimal strings end to end; this is only used
// for validation and comparison.
const amountScale = 9

// ParseAmount converts a decimal amount string (e.g. "100", "99.50") into
// scaled integer units. Returns an error for malformed or non-positive values.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	if len(frac) > amountScale {
		return nil, fmt.Errorf("amount has too many decimal places: %s", s)
	}
	for len(frac) < amountScale {
		frac += "0"
	}

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", s)
	}
	return v, nil
}
