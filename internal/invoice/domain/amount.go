package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric is a lenient JSON number. It accepts numbers, numeric strings and
// anything else; whatever does not parse counts as zero.
type Numeric string

func (n *Numeric) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*n = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*n = Numeric(strings.TrimSpace(raw))
	return nil
}

func (n Numeric) Decimal() decimal.Decimal {
	return ParseAmount(string(n))
}

// Amounts are stored as NUMERIC(14, x). The exponent window keeps
// Round and Cmp from rescaling to absurd precision.
const (
	minExponent = -32
	maxExponent = 12
)

var maxAmount = decimal.New(1, maxExponent)

// ParseAmount parses a decimal and returns zero for anything unparsable or
// outside what an amount column can hold.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return decimal.Zero
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero
	}
	return d
}

const (
	quantityScale = 4
	moneyScale    = 2
)

// LineAmount is quantity times unit price, rounded half up to cents.
func LineAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(moneyScale)
}

// Total sums the line amounts of items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount())
	}
	return total
}
