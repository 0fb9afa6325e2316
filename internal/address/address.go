// Package address handles parsing and normalization of account addresses.
//
// Addresses are 20-byte identifiers written as 0x-prefixed hex. They are
// normalized to lower case so map lookups and database keys are stable
// regardless of checksum casing supplied by clients.
package address

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Zero is the "no referrer" sentinel.
const Zero = "0x0000000000000000000000000000000000000000"

// addressRegex matches: 0x{40 hex digits}
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var (
	ErrInvalidAddress = errors.New("address: invalid account address")
)

// Parse validates an address and returns its normalized form.
func Parse(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !addressRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %q (expected 0x followed by 40 hex digits)", ErrInvalidAddress, s)
	}
	return strings.ToLower(s), nil
}

// ParseOrZero is Parse with the empty string treated as Zero.
func ParseOrZero(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return Zero, nil
	}
	return Parse(s)
}

// MustParse is Parse for constants and tests. It panics on invalid input.
func MustParse(s string) string {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the zero address (or empty).
func IsZero(a string) bool {
	return a == "" || strings.EqualFold(a, Zero)
}
