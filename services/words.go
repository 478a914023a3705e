package services

import (
	"math"
	"strings"
)

// AmountToWords converts a numeric amount to English words for the total
// line of client-facing documents.
// Example: 913183.00 → "Nine Hundred and Thirteen Thousand One Hundred and
// Eighty Three Rubles Only".
func AmountToWords(amount float64) string {
	if amount < 0 {
		return "Negative " + AmountToWords(-amount)
	}

	rubles := int64(math.Round(amount))

	if rubles == 0 {
		return "Zero Rubles Only"
	}

	return convertToWords(rubles) + " Rubles Only"
}

func convertToWords(n int64) string {
	if n == 0 {
		return ""
	}

	var parts []string

	if n >= 1000000000000 {
		parts = append(parts, convertToWords(n/1000000000000)+" Trillion")
		n %= 1000000000000
	}

	if n >= 1000000000 {
		parts = append(parts, convertUnder1000(n/1000000000)+" Billion")
		n %= 1000000000
	}

	if n >= 1000000 {
		parts = append(parts, convertUnder1000(n/1000000)+" Million")
		n %= 1000000
	}

	if n >= 1000 {
		parts = append(parts, convertUnder1000(n/1000)+" Thousand")
		n %= 1000
	}

	if n > 0 {
		parts = append(parts, convertUnder1000(n))
	}

	return strings.Join(parts, " ")
}

func convertUnder1000(n int64) string {
	if n >= 100 {
		result := ones[n/100] + " Hundred"
		if n%100 != 0 {
			result += " and " + convertUnder100(n%100)
		}
		return result
	}
	return convertUnder100(n)
}

func convertUnder100(n int64) string {
	if n < 20 {
		return ones[n]
	}
	result := tens[n/10]
	if n%10 != 0 {
		result += " " + ones[n%10]
	}
	return result
}

var ones = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}
