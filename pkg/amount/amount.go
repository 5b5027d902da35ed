// Package amount converts between user-typed decimal strings and the integer
// base units that tokens use on chain. Amounts never pass through floating
// point on the way.
package amount

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a decimal string to base units, e.g. "10.5" with 6
// decimals -> 10500000. Thousands separators are ignored. Fractional digits
// beyond decimals are truncated, never rounded. Malformed input yields zero;
// callers validate with IsNumeric first.
func ToBaseUnits(amount string, decimals int) *big.Int {
	if decimals < 0 {
		decimals = 0
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(amount), ",", "")
	parts := strings.Split(cleaned, ".")

	whole := parts[0]
	if whole == "" {
		whole = "0"
	}
	frac := ""
	if len(parts) > 1 {
		frac = parts[1]
	}

	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else {
		frac = frac[:decimals]
	}

	result, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return new(big.Int)
	}
	return result
}

// FromBaseUnits renders base units with exactly decimals fractional digits,
// e.g. 125500000 with 6 decimals -> "125.500000".
func FromBaseUnits(value *big.Int, decimals int) string {
	if value == nil {
		value = new(big.Int)
	}
	if decimals < 0 {
		decimals = 0
	}

	str := value.String()
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign = "-"
		str = str[1:]
	}

	if decimals == 0 {
		return sign + str
	}

	if len(str) < decimals+1 {
		str = strings.Repeat("0", decimals+1-len(str)) + str
	}

	cut := len(str) - decimals
	return sign + str[:cut] + "." + str[cut:]
}

// FromBaseUnitsString is FromBaseUnits for amounts that arrive as strings
// from an aggregator. Unparsable input renders as zero.
func FromBaseUnitsString(value string, decimals int) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		v = new(big.Int)
	}
	return FromBaseUnits(v, decimals)
}

// IsNumeric reports whether s is digits with at most one decimal point.
func IsNumeric(s string) bool {
	digits := 0
	dots := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// IsPartialNumeric accepts the intermediate strings a user produces while
// typing an amount ("", ".", "12.").
func IsPartialNumeric(s string) bool {
	return s == "" || s == "." || IsNumeric(s)
}

// DisplayPlaces is the number of fractional digits shown for an asset
func DisplayPlaces(decimals int) int {
	if decimals == 18 {
		return 6
	}
	return 2
}

// Format renders a decimal string with thousands separators and a fixed
// number of places. Unparsable input renders as zero.
func Format(amount string, places int) string {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(amount), ",", ""))
	if err != nil {
		d = decimal.Zero
	}

	fixed := d.StringFixed(int32(places))
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, frac, hasFrac := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// Fraction returns pct of a decimal balance, truncated to places so a preset
// can never exceed the balance it was taken from.
func Fraction(balance string, pct decimal.Decimal, places int) string {
	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero.StringFixed(int32(places))
	}
	return d.Mul(pct).Truncate(int32(places)).StringFixed(int32(places))
}

// Exceeds reports whether amount is strictly greater than limit. Both are
// decimal strings; unparsable values compare as zero.
func Exceeds(amount, limit string) bool {
	a, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
	if err != nil {
		a = decimal.Zero
	}
	l, err := decimal.NewFromString(strings.ReplaceAll(limit, ",", ""))
	if err != nil {
		l = decimal.Zero
	}
	return a.GreaterThan(l)
}

// IsPositive reports whether a decimal string is greater than zero
func IsPositive(amount string) bool {
	d, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
	return err == nil && d.IsPositive()
}
