package services

import (
	"fmt"
	"strings"
)

// FormatRUB formats an amount into ruble notation with thousands separated
// by spaces and a comma decimal separator, always with exactly 2 decimal
// places (e.g. 1234567.8 → "1 234 567,80 ₽").
func FormatRUB(amount float64) string {
	negative := false
	if amount < 0 {
		negative = true
		amount = -amount
	}

	raw := fmt.Sprintf("%.2f", amount)

	parts := strings.SplitN(raw, ".", 2)
	intPart := parts[0]
	decPart := parts[1]

	formatted := applyThousandsGrouping(intPart)

	result := formatted + "," + decPart + " ₽"
	if negative {
		result = "-" + result
	}
	return result
}

// applyThousandsGrouping inserts spaces into an integer string every three
// digits from the right.
func applyThousandsGrouping(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	remaining := s[:n-3]

	for len(remaining) > 3 {
		result = remaining[len(remaining)-3:] + " " + result
		remaining = remaining[:len(remaining)-3]
	}
	if len(remaining) > 0 {
		result = remaining + " " + result
	}

	return result
}
