// Package phone normalizes Algerian mobile numbers to their canonical
// international form (+213XXXXXXXXX).
package phone

import (
	"errors"
	"fmt"
	"strings"
)

// CountryCode is the Algerian dialing code.
const CountryCode = "213"

// subscriberDigits is the length of a national subscriber number
// (mobile prefix digit + 8 digits).
const subscriberDigits = 9

// RejectReason classifies why a candidate was refused.
type RejectReason string

const (
	ReasonTooShort     RejectReason = "too_short"
	ReasonTooLong      RejectReason = "too_long"
	ReasonNotMobile    RejectReason = "not_mobile"
	ReasonWrongCountry RejectReason = "wrong_country"
	ReasonNotANumber   RejectReason = "not_a_number"
)

// RejectError is returned when a candidate cannot be normalized.
type RejectError struct {
	Reason RejectReason
	Input  string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("phone: rejected %q: %s", e.Input, e.Reason)
}

// mobilePrefixes is the allow-list of Algerian mobile plan prefixes.
// Fixed-line ranges (2x, 3x, 4x) must not slip through even when the
// digit count is plausible.
var mobilePrefixes = map[byte]bool{'5': true, '6': true, '7': true}

// Normalize converts a free-form phone-like string to +213XXXXXXXXX.
// Accepted shapes: "+213xxxxxxxxx", "00213xxxxxxxxx", "213xxxxxxxxx",
// national "0xxxxxxxxx", and a bare 9-digit subscriber number.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &RejectError{Reason: ReasonNotANumber, Input: raw}
	}

	hadPlus := strings.HasPrefix(trimmed, "+")
	digits := keepDigits(trimmed)
	if digits == "" {
		return "", &RejectError{Reason: ReasonNotANumber, Input: raw}
	}

	subscriber, err := subscriberPart(digits, hadPlus, raw)
	if err != nil {
		return "", err
	}

	if !mobilePrefixes[subscriber[0]] {
		return "", &RejectError{Reason: ReasonNotMobile, Input: raw}
	}
	return "+" + CountryCode + subscriber, nil
}

// subscriberPart reduces the digit string to the 9-digit national
// subscriber number, stripping country code or trunk prefix.
func subscriberPart(digits string, hadPlus bool, raw string) (string, error) {
	switch {
	case strings.HasPrefix(digits, "00"+CountryCode):
		digits = digits[2+len(CountryCode):]
	case strings.HasPrefix(digits, CountryCode) && len(digits) == len(CountryCode)+subscriberDigits:
		digits = digits[len(CountryCode):]
	case hadPlus:
		// A +-prefixed number that does not carry the Algerian code
		// belongs to another numbering plan.
		return "", &RejectError{Reason: ReasonWrongCountry, Input: raw}
	case strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}

	if len(digits) < subscriberDigits {
		return "", &RejectError{Reason: ReasonTooShort, Input: raw}
	}
	if len(digits) > subscriberDigits {
		return "", &RejectError{Reason: ReasonTooLong, Input: raw}
	}
	return digits, nil
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCanonical reports whether value is already in canonical form.
func IsCanonical(value string) bool {
	normalized, err := Normalize(value)
	return err == nil && normalized == value
}

// ReasonOf extracts the rejection reason from an error returned by
// Normalize, or "" when the error is not a rejection.
func ReasonOf(err error) RejectReason {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}
