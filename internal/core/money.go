// Package core provides the chart domain types and the display formatting
// shared by every chart kind.
//
// This file contains the currency tick formatters. Amounts arrive as plain
// float64 values straight from the payload; nothing here converts units.
package core

import (
	"math"
	"strconv"
	"strings"
)

// CurrencySymbol is prefixed to every monetary label.
const CurrencySymbol = "$"

// FormatCurrency renders a tick value as a compact currency label.
//
// Magnitudes of 1000 and above are compacted by repeated division by 1000,
// each group of three digits joined with ",". Smaller values are printed raw.
//
// Examples:
//   FormatCurrency(999)     -> "$999"
//   FormatCurrency(1500)    -> "$1,500"
//   FormatCurrency(1234000) -> "$1,234,000"
//   FormatCurrency(-1500)   -> "$-1,500"
func FormatCurrency(value float64) string {
	if math.Abs(value) >= 1000 {
		return CurrencySymbol + groupThousands(value)
	}
	return CurrencySymbol + formatRaw(value)
}

// FormatCurrencySuppressNegative is FormatCurrency for the expenditure axis
// of the dual-axis chart: labels at or below -1000 are left empty so the
// mirrored negative side of the axis stays uncluttered.
func FormatCurrencySuppressNegative(value float64) string {
	if value <= -1000 {
		return ""
	}
	return FormatCurrency(value)
}

// FormatPlain renders a tick value without any currency decoration.
func FormatPlain(value float64) string {
	return formatRaw(value)
}

func formatRaw(value float64) string {
	if value == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// groupThousands splits the integer part into groups of 1000 and keeps any
// fractional digits untouched.
func groupThousands(value float64) string {
	neg := value < 0
	if neg {
		value = -value
	}
	s := strconv.FormatFloat(value, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ",") + frac
	if neg {
		return "-" + out
	}
	return out
}
