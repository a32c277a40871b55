// Package natid normalizes national ID numbers used as patient login keys.
// Clinics record the same number either as a bare 11-digit string or in the
// punctuated 000.000.000-00 form; lookups must accept both.
package natid

import (
	"fmt"
	"strings"
)

// CanonicalLength is the digit count of a well-formed national ID.
const CanonicalLength = 11

// Normalize strips every non-digit rune from the input.
func Normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders an 11-digit ID in the punctuated 000.000.000-00 form.
// Inputs of any other length are returned unchanged.
func Format(digits string) string {
	if len(digits) != CanonicalLength {
		return digits
	}
	return fmt.Sprintf("%s.%s.%s-%s", digits[0:3], digits[3:6], digits[6:9], digits[9:11])
}

// LoginEmail derives the deterministic directory address for a patient,
// "patient+<digits>@<domain>". It depends only on the identifier so repeated
// logins always converge on the same account, regardless of what contact
// email the record carries.
func LoginEmail(digits, domain string) string {
	return fmt.Sprintf("patient+%s@%s", digits, domain)
}

// Candidates returns the lookup candidates for a free-form identifier input:
// the digit-only form and, when the input is canonical, the punctuated form.
// Non-canonical inputs fall back to the raw input as the second candidate so
// legacy rows stored verbatim are still found.
func Candidates(input string) (digits, formatted string) {
	digits = Normalize(input)
	if len(digits) == CanonicalLength {
		return digits, Format(digits)
	}
	return digits, input
}
