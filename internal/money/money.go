// Package money parses and formats amounts in integer minor units.
// It exists so no float ever touches a monetary value: parsing is a
// conservative token grammar and formatting is integer division.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxAbsCents bounds parsed amounts at $10,000,000.00. Anything larger on a
// receipt is a typo or an OCR artifact.
const MaxAbsCents int64 = 10_000_000_00

var (
	ErrEmptyToken = errors.New("amount token is empty")
	ErrNegative   = errors.New("negative amounts are not allowed")
	ErrTooLarge   = errors.New("amount exceeds safety limit")
)

// tokenRE accepts "$" prefix, "." or "," as the decimal separator with one
// or two decimal digits, and a trailing "-" for negative (receipts print
// credits that way). Thousands separators are rejected separately rather
// than guessed at.
var tokenRE = regexp.MustCompile(`^\s*\$?\s*(\d{1,7})([.,](\d{1,2}))?\s*(-)?\s*$`)

var thousandsRE = regexp.MustCompile(`\d,\d{3}`)

// ParseCents parses a human-typed amount token into integer cents.
//
// Accepted: "12" -> 1200, "12.34" -> 1234, "$12.34" -> 1234,
// "12,34" -> 1234 (decimal comma), "5.00-" -> -500.
// Rejected: "1,234.56" (thousands separator ambiguity), "12.345",
// "-12.34" (leading minus), non-numeric junk.
func ParseCents(token string, allowNegative bool) (int64, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, ErrEmptyToken
	}
	if thousandsRE.MatchString(s) {
		return 0, fmt.Errorf("ambiguous thousands separator in %q", token)
	}

	m := tokenRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid amount token %q", token)
	}

	whole, decDigits, dash := m[1], m[3], m[4]
	if dash != "" && !allowNegative {
		return 0, ErrNegative
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount token %q: %w", token, err)
	}

	var cents int64
	if decDigits != "" {
		cents, err = strconv.ParseInt(decDigits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount token %q: %w", token, err)
		}
		if len(decDigits) == 1 {
			cents *= 10
		}
	}

	total := units*100 + cents
	if dash != "" {
		total = -total
	}
	if total > MaxAbsCents || total < -MaxAbsCents {
		return 0, ErrTooLarge
	}
	return total, nil
}

// FormatCents renders integer cents as a display string like "$12.34".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
