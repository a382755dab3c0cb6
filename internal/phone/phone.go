// Package phone normalises phone numbers into the key used to match chat
// contacts against stored profiles.
package phone

import "strings"

// KeyLength is the number of trailing digits that identify a number.
// Keeping only the suffix tolerates country-code prefixes and punctuation.
// Two numbers sharing the same suffix are indistinguishable.
const KeyLength = 10

// Normalize strips every non-digit character and returns the last KeyLength
// digits. Inputs with fewer digits are returned whole; an input without
// digits yields "".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > KeyLength {
		return digits[len(digits)-KeyLength:]
	}
	return digits
}
