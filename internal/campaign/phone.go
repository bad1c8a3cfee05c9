package campaign

import (
	"errors"
	"strings"
)

var ErrUnusablePhone = errors.New("campaign: phone number has no digits")

// NormalizePhone converts a directory phone entry into the +E.164 form the
// voice provider requires. The congregation directory is NANP-assumed:
//
// - every non-digit is stripped
// - a number already carrying the leading 1 country code gets just a plus
// - anything else is taken as a domestic number and prefixed with +1
//
// A number with no digits at all is unusable and returns ErrUnusablePhone.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrUnusablePhone
	}
	if strings.HasPrefix(digits, "1") {
		return "+" + digits, nil
	}
	return "+1" + digits, nil
}
