package phone

import "strings"

// DefaultCountryCode is applied to bare national numbers when the caller does
// not configure one.
const DefaultCountryCode = "+91"

// Normalize maps freeform phone input to a canonical E.164-like string.
//
// Rules, in order:
//  1. Trim whitespace; input already starting with "+" is returned unchanged.
//  2. Strip all non-digit characters.
//  3. Exactly 10 digits: prefix the default country code.
//  4. Exactly 11 digits with a leading 0: drop the 0, prefix the country code.
//  5. Anything else: prefix a bare "+".
//
// Normalize never fails; plausibility of the result is not validated here.
func Normalize(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "+") {
		return raw
	}

	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		return countryCode + digits
	case len(digits) == 11 && digits[0] == '0':
		return countryCode + digits[1:]
	default:
		return "+" + digits
	}
}
