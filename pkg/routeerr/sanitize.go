package routeerr

import (
	"strings"
	"unicode"
)

// Per-field length limits applied by Sanitize callers.
const (
	MaxPathLength    = 512
	MaxNameLength    = 128
	MaxMessageLength = 1024
)

const ellipsis = "..."

// Sanitize removes NUL and other control characters from s and truncates
// the result to max runes, marking truncation with a trailing ellipsis.
// A max of zero or less disables truncation.
func Sanitize(s string, max int) string {
	if s == "" {
		return s
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	if max <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) <= max {
		return clean
	}
	return string(runes[:max]) + ellipsis
}
