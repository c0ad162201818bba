// Package money holds the two-decimal helpers shared by the balance,
// statement and reconciliation code. All amounts are shopspring decimals so
// sums never drift the way float64 does.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits every stored amount keeps.
const Places = 2

// Parse reads a signed decimal string such as "-4.50" or "1000".
// Surrounding whitespace is ignored. Values that need more than two
// fraction digits are rejected rather than rounded.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(Round(d)) {
		return decimal.Zero, fmt.Errorf("invalid amount %q: more than %d decimal places", s, Places)
	}
	return Round(d), nil
}

// Round rounds half away from zero to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds the values and rounds once at the end.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// Format renders d with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Amount is a stored or reported money value. It behaves like the embedded
// decimal for arithmetic and database scanning but always renders with two
// fraction digits in JSON.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: Round(d)}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(Places) + `"`), nil
}
