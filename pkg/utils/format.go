// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"HKD": "HK$",
	"CNY": "¥",
	"JPY": "¥",
	"EUR": "€",
	"GBP": "£",
}

// FormatPrice formats an amount with the currency's symbol, falling back to
// the ISO code as a suffix for unknown currencies.
func FormatPrice(currency string, amount float64) string {
	if math.IsNaN(amount) {
		return "N/A"
	}
	decimals := 2
	if currency == "JPY" {
		decimals = 0
	}
	str := fmt.Sprintf("%.*f", decimals, math.Abs(amount))
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	if sym, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return sign + sym + groupThousands(str)
	}
	if currency == "" {
		return sign + groupThousands(str)
	}
	return sign + groupThousands(str) + " " + currency
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	intPart, decPart, hasDec := strings.Cut(s, ".")
	n := len(intPart)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(intPart[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasDec {
		b.WriteByte('.')
		b.WriteString(decPart)
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatCompact formats a number in compact form (K/M/B/T).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", amount/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", amount/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", amount/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", amount/1e3)
	default:
		return fmt.Sprintf("%.0f", amount)
	}
}

// ScoreBar renders a score as filled and empty slots, e.g. "████░░".
func ScoreBar(score float64, slots int) string {
	filled := int(math.Round(score))
	if filled < 0 {
		filled = 0
	}
	if filled > slots {
		filled = slots
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", slots-filled)
}
