package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney parses user input such as "1,450.00" or "$89.5". An empty
// string yields nil, meaning "cleared".
func ParseMoney(raw string) (*decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, nil
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	neg := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if neg {
		d = d.Neg()
	}
	return &d, nil
}

// FormatMoney renders an amount as "$1,450.00", or "-$12.50" when negative.
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
