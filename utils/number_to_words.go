package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ones = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
	"Sixteen", "Seventeen", "Eighteen", "Nineteen",
}

var tens = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

var scales = []struct {
	size int64
	name string
}{
	{1_000_000_000_000, "Trillion"},
	{1_000_000_000, "Billion"},
	{1_000_000, "Million"},
	{1_000, "Thousand"},
}

// NumberToWords spells out a non-negative integer on the short scale.
// Zero is the empty string.
func NumberToWords(num int64) string {
	switch {
	case num <= 0:
		return ""
	case num < 20:
		return ones[num]
	case num < 100:
		return strings.TrimSpace(tens[num/10] + " " + ones[num%10])
	case num < 1000:
		remainder := num % 100
		if remainder == 0 {
			return ones[num/100] + " Hundred"
		}
		return ones[num/100] + " Hundred " + NumberToWords(remainder)
	}

	for _, s := range scales {
		if num < s.size {
			continue
		}
		remainder := num % s.size
		if remainder == 0 {
			return NumberToWords(num/s.size) + " " + s.name
		}
		return NumberToWords(num/s.size) + " " + s.name + " " + NumberToWords(remainder)
	}
	return ""
}

// AmountToWords spells out a money amount using the given major and minor
// currency unit names, e.g. "Nine Dollars and Ninety Nine Cents Only".
func AmountToWords(amount decimal.Decimal, major, minor string) string {
	amount = amount.Abs().Round(2)
	whole := amount.Truncate(0)
	fraction := amount.Sub(whole).Shift(2).IntPart()

	var parts []string
	if w := whole.IntPart(); w > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", NumberToWords(w), major))
	}
	if fraction > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", NumberToWords(fraction), minor))
	}

	if len(parts) == 0 {
		return "Zero " + major + " Only"
	}
	return strings.Join(parts, " and ") + " Only"
}
