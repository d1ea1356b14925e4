// Package otp obtains one-time passcodes from an external token generator.
package otp

import "regexp"

// Stable error messages carried by Error results.
const (
	MsgTimeout = "Error getting OTP, check your PIN"
	MsgUnknown = "Unknown error occurred"
)

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// Result is either a numeric code or an error message.
type Result struct {
	code string
	msg  string
}

// Code returns a successful result. Callers should prefer Classify, which
// enforces the digits-only invariant.
func Code(digits string) Result { return Result{code: digits} }

// Error returns a failed result carrying msg.
func Error(msg string) Result { return Result{msg: msg} }

// Classify turns a captured payload into a Result: a Code if and only if
// the payload is a non-empty run of decimal digits, an Error otherwise.
func Classify(payload string) Result {
	if digitsOnly.MatchString(payload) {
		return Code(payload)
	}
	return Error(payload)
}

// IsCode reports whether r holds a passcode.
func (r Result) IsCode() bool { return r.code != "" }

// Code returns the passcode, or "" for an Error result.
func (r Result) Code() string { return r.code }

// Message returns the error message, or "" for a Code result.
func (r Result) Message() string { return r.msg }

// String returns the passcode or the error message.
func (r Result) String() string {
	if r.IsCode() {
		return r.code
	}
	return r.msg
}
