package otp

import (
	"regexp"
)

// Length is the number of digits in a code.
const Length = 6

// A code must not be part of a longer run of digits.
var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Extract returns the first 6-digit code in text, or "" if there is none.
func Extract(text string) string {
	return codePattern.FindString(text)
}

// ExtractFirst returns the code from the first body that contains one.
func ExtractFirst(bodies ...string) string {
	for _, body := range bodies {
		if code := Extract(body); code != "" {
			return code
		}
	}

	return ""
}
