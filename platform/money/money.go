// Package money parses monetary amounts typed by people or exported from
// spreadsheets, in Brazilian ("1.500,00") or international ("1,500.00") form.
package money

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("empty amount")
	// ErrMalformed is returned when input is not a number.
	ErrMalformed = errors.New("malformed amount")

	amountRegex    = regexp.MustCompile(`^-?[\d.,]+$`)
	currencyPrefix = strings.NewReplacer("R$", "", "BRL", "", "US$", "", "$", "", " ", "", "\u00a0", "")
)

// Parse converts raw into an amount rounded to cents.
func Parse(raw string) (float64, error) {
	s := currencyPrefix.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, ErrEmpty
	}
	if !amountRegex.MatchString(s) {
		return 0, ErrMalformed
	}

	value, err := strconv.ParseFloat(canonical(s), 64)
	if err != nil {
		return 0, ErrMalformed
	}
	return math.Round(value*100) / 100, nil
}

// Coerce is Parse with safe defaults: blank and malformed input both yield 0.
// malformed reports whether non-blank input had to be discarded.
func Coerce(raw string) (value float64, malformed bool) {
	value, err := Parse(raw)
	switch {
	case errors.Is(err, ErrEmpty):
		return 0, false
	case err != nil:
		return 0, true
	}
	return value, false
}

// canonical rewrites s so that '.' is the only, decimal, separator.
func canonical(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// "1.500" is fifteen hundred in pt-BR exports; "1.5" stays decimal.
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}
	return s
}
