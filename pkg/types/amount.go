package types

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a human amount like "0.1" or "1000" into the token's
// smallest unit given its decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	f, ok := new(big.Float).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if f.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	scale := new(big.Float).SetInt(pow10(decimals))
	f.Mul(f, scale)

	out, _ := f.Int(nil)
	return out, nil
}

// FormatUnits renders a smallest-unit amount as a human decimal string.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	q, r := new(big.Int).QuoRem(amount, pow10(decimals), new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%0*s", decimals, r.String()), "0")
	return q.String() + "." + frac
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
