package preview

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParsePrice reads a price as typed by an editor: "R$ 1.299,90", "99,90",
// "1299.90" or "1.299". When both separators appear the last one is the
// decimal mark. A lone dot followed by exactly three digits is a thousands
// separator.
func ParsePrice(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	raw := strings.Trim(b.String(), ".,")
	if raw == "" {
		return decimal.Zero, false
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") > 1 {
			return decimal.Zero, false
		}
		raw = strings.Replace(raw, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(raw, ".") > 1 || len(raw)-lastDot-1 == 3 {
			raw = strings.ReplaceAll(raw, ".", "")
		}
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Discount returns the rounded percentage saved going from `from` to
// `price`. ok is false when either price does not parse or nothing is saved.
func Discount(price, from string) (int, bool) {
	p, ok := ParsePrice(price)
	if !ok {
		return 0, false
	}
	f, ok := ParsePrice(from)
	if !ok || !f.IsPositive() {
		return 0, false
	}
	pct := f.Sub(p).Div(f).Mul(hundred).Round(0).IntPart()
	if pct <= 0 {
		return 0, false
	}
	return int(pct), true
}

// Amount formats a price for og:product:price:amount, e.g. "1299.90".
func Amount(price string) string {
	d, ok := ParsePrice(price)
	if !ok {
		return ""
	}
	return d.StringFixed(2)
}

// FormatBRL renders d the way prices are shown on the site: "R$ 1.299,90".
func FormatBRL(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "R$ " + b.String() + "," + frac
}
