// Package query turns free-form chat text into the canonical form sent to the
// lookup provider.
package query

import (
	"regexp"
	"strings"
)

// phoneShape is anchored at the start only: the first 10-15 characters must
// look like a phone number, anything after them is ignored by the check.
var phoneShape = regexp.MustCompile(`^\+?[0-9\s\-()]{10,15}`)

// Normalize returns the canonical search string for raw. Phone-shaped input is
// reduced to digits with a +7 country prefix where one can be inferred; other
// text only has its whitespace collapsed. Empty input yields "".
func Normalize(raw string) string {
	q := strings.TrimSpace(raw)
	if q == "" {
		return ""
	}
	if IsPhoneLike(q) {
		return NormalizePhone(q)
	}
	return strings.Join(strings.Fields(q), " ")
}

// IsPhoneLike reports whether s passes the loose phone-shape heuristic.
func IsPhoneLike(s string) bool {
	return phoneShape.MatchString(s)
}

// NormalizePhone strips everything except digits and '+' and applies the
// Russian dialing rules: 8XXXXXXXXXX and 7XXXXXXXXXX become +7XXXXXXXXXX,
// a bare 10-digit 9XXXXXXXXX gets +7 prepended.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "8"):
		return "+7" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7"):
		return "+" + cleaned
	case strings.HasPrefix(cleaned, "9") && len(cleaned) == 10:
		return "+7" + cleaned
	}
	return cleaned
}
