package otp

import "unicode/utf8"

type Result int

const (
	Invalid Result = iota
	Valid
)

// Verify reports whether value has the length of a code. The characters
// themselves are not checked.
func Verify(value string) Result {
	if utf8.RuneCountInString(value) == Length {
		return Valid
	}

	return Invalid
}

func (r Result) String() string {
	if r == Valid {
		return "valid"
	}

	return "invalid"
}

// Message is the text shown to the user for the result.
func (r Result) Message() string {
	if r == Valid {
		return "OTP verified successfully"
	}

	return "Invalid OTP"
}
