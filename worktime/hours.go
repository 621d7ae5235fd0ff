package worktime

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"workhours/apperror"
)

// Hour values are never written with more than this many fractional digits
// or this large an exponent. Anything outside the window would make decimal
// comparisons scale by huge powers of ten.
const (
	minHoursExponent = -20
	maxHoursExponent = 4
)

func exponentInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= minHoursExponent && exp <= maxHoursExponent
}

// ParseHours reads an extra-hours form value. Empty means zero; both "1.5"
// and "1,5" are accepted. Exponent notation far outside the range of an
// hour count is rejected before any arithmetic.
func ParseHours(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, apperror.Validation("invalid number of hours %q", s)
	}
	if !exponentInRange(d) {
		return decimal.Zero, apperror.Validation("invalid number of hours %q", s)
	}
	return d, nil
}

// FormatClockHours renders decimal hours as H:MM, e.g. 1.50 -> "1:30".
// Minutes are truncated, not rounded.
func FormatClockHours(h decimal.Decimal) string {
	if h.IsZero() {
		return "0:00"
	}
	h = h.Round(2)
	whole := h.Truncate(0)
	minutes := h.Sub(whole).Mul(decimal.NewFromInt(60)).IntPart()
	return fmt.Sprintf("%d:%02d", whole.IntPart(), minutes)
}

// FormatDecimalHours renders hours with exactly two decimals.
func FormatDecimalHours(h decimal.Decimal) string {
	return h.StringFixed(2)
}
