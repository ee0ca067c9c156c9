package utils

import (
	"strconv"
	"strings"
)

// FormatYen formats an amount of yen with thousands separators.
// Example: 1500 -> "1,500円"
func FormatYen(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + "円"
}

// PriceRange renders "lowest円～highest円" for listing cards.
func PriceRange(lowest, highest int) string {
	return FormatYen(lowest) + "～" + FormatYen(highest)
}
