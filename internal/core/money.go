// Package core provides amount parsing and formatting utilities.
//
// Amounts are plain float64 values. Parsing is deliberately lenient: it
// follows the browser's parseFloat, so malformed input turns into NaN instead
// of an error.
package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseAmount converts the longest numeric prefix of s to a float64.
//
// Leading whitespace is skipped. Input without a numeric prefix yields NaN.
//
// Examples:
//
//	ParseAmount("12.50")  -> 12.5
//	ParseAmount(" 3.5kg") -> 3.5
//	ParseAmount("1e3")    -> 1000
//	ParseAmount("abc")    -> NaN
func ParseAmount(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	m := floatPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}
	if strings.TrimLeft(m, "+-") == "Infinity" {
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	// Out-of-range values come back as ±Inf or 0 together with ErrRange,
	// which is what we want.
	v, _ := strconv.ParseFloat(m, 64)
	return v
}

// FormatAmount renders an amount as dollars with two decimals, e.g. "$3.50".
func FormatAmount(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}
