package helpers

import (
	"strconv"
	"strings"
)

// ParseAmount parses a user-entered decimal amount used in Telegram flows.
// It tolerates surrounding whitespace, a leading currency symbol, and a
// decimal comma. It returns the parsed value and true only for finite,
// strictly positive amounts.
func ParseAmount(input string) (float64, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v <= 0 || v != v || v > 1e12 {
		return 0, false
	}
	return v, true
}
