// Package phone normalizes lead phone numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "BR"

// NormalizeE164 formats input as E.164. Input that cannot be parsed as a
// valid number is returned trimmed so nothing the user typed is lost.
func NormalizeE164(input string) string {
	normalized, ok := Parse(input)
	if !ok {
		return strings.TrimSpace(input)
	}
	return normalized
}

// Parse returns the E.164 form of input and whether it is a valid number.
func Parse(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}
