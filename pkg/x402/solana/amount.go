package solana

import (
	"fmt"
	"math/big"
	"strings"
)

// ToSmallestUnit converts a decimal UI-unit amount string (e.g. "0.10") to
// its smallest-unit integer representation at the given decimals, per
// invariant 1: no float64 appears anywhere on this path. The teacher's
// rawAmountToFloat (amount_parsing.go) already round-trips a raw smallest
// unit string through big.Int/big.Float on the way to a float64; this
// function stops one step earlier and goes the other direction, producing
// the *big.Int the policy layer compares directly.
//
// Rejects: empty strings, a leading '+', more than one '.', a leading '-'
// (amounts are never negative at this boundary), scientific notation, and
// strings with more fractional digits than decimals allows (no silent
// truncation).
func ToSmallestUnit(amount string, decimals uint8) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount: empty string")
	}
	if strings.ContainsAny(amount, "eE+") {
		return nil, fmt.Errorf("amount: scientific notation not allowed: %q", amount)
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("amount: negative amount not allowed: %q", amount)
	}

	whole, frac, hasFrac := strings.Cut(amount, ".")
	if whole == "" {
		return nil, fmt.Errorf("amount: missing whole part: %q", amount)
	}
	if !isAllDigits(whole) {
		return nil, fmt.Errorf("amount: invalid whole part: %q", amount)
	}
	if hasFrac {
		if !isAllDigits(frac) {
			return nil, fmt.Errorf("amount: invalid fractional part: %q", amount)
		}
		if len(frac) > int(decimals) {
			return nil, fmt.Errorf("amount: %q has more fractional digits than %d decimals allows", amount, decimals)
		}
	}
	frac = frac + strings.Repeat("0", int(decimals)-len(frac))

	combined := whole + frac
	combined = strings.TrimLeft(combined, "0")
	if combined == "" {
		combined = "0"
	}

	result, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("amount: failed to parse %q as integer", amount)
	}
	return result, nil
}

// FromSmallestUnit renders a smallest-unit integer back to a decimal
// UI-unit string at the given decimals, exactly, trimming trailing
// fractional zeros and dropping the point when no fraction remains
// (100000 at 6 decimals renders "0.1"; 1000000 renders "1").
func FromSmallestUnit(amount *big.Int, decimals uint8) string {
	s := amount.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) <= int(decimals) {
		s = "0" + s
	}
	cut := len(s) - int(decimals)
	whole, frac := s[:cut], s[cut:]
	if whole == "" {
		whole = "0"
	}
	out := whole
	if decimals > 0 {
		frac = strings.TrimRight(frac, "0")
		if frac != "" {
			out = whole + "." + frac
		}
	}
	if neg {
		out = "-" + out
	}
	return out
}

func isAllDigits(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
