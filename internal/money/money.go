package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in integer minor units (cents for USD). All monetary
// arithmetic in this codebase happens on int64 minor units; binary floats
// never touch a price.
type Money struct {
	Amount   int64  // minor units
	Currency string // ISO 4217 lowercase, e.g. "usd"
}

// New validates and builds a Money value.
func New(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, fmt.Errorf("amount cannot be negative: %d", amount)
	}
	if currency == "" {
		return Money{}, fmt.Errorf("currency is required")
	}
	return Money{Amount: amount, Currency: strings.ToLower(currency)}, nil
}

// Mul returns m scaled by a non-negative quantity.
func (m Money) Mul(qty int64) (Money, error) {
	if qty < 0 {
		return Money{}, fmt.Errorf("quantity cannot be negative: %d", qty)
	}
	if qty != 0 && m.Amount > 0 && m.Amount > (1<<62)/qty {
		return Money{}, fmt.Errorf("amount overflow: %d * %d", m.Amount, qty)
	}
	return Money{Amount: m.Amount * qty, Currency: m.Currency}, nil
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// String formats the amount as a decimal with two fraction digits.
func (m Money) String() string {
	sign := ""
	a := m.Amount
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/100, a%100)
}

// ParseDecimal converts a decimal string like "10.00" or "9.5" into minor
// units, rounding half away from zero when more than two fraction digits
// are present. It is the ingestion-side inverse of String for catalog
// seeding and provider payloads; request handling never parses client
// amounts.
func ParseDecimal(s, currency string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, fmt.Errorf("amount cannot be negative: %q", s)
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	for i := 0; i < len(fracPart); i++ {
		if fracPart[i] < '0' || fracPart[i] > '9' {
			return Money{}, fmt.Errorf("invalid amount %q", s)
		}
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := whole * 100

	switch {
	case len(fracPart) == 0:
	case len(fracPart) <= 2:
		padded := fracPart + strings.Repeat("0", 2-len(fracPart))
		f, err := strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		cents += f
	default:
		f, err := strconv.ParseInt(fracPart[:2], 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		cents += f
		// round half away from zero on the third digit
		if fracPart[2] >= '5' {
			cents++
		}
	}

	return New(cents, currency)
}
