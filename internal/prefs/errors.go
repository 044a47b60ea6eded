package prefs

import (
	"errors"
	"fmt"
)

// Error codes for rejected preference operations.
const (
	CodeUnknownPreference = "UNKNOWN_PREFERENCE"
	CodeInvalidPreference = "INVALID_PREFERENCE"
)

// Error is returned when a preference name is unknown or a value falls
// outside the preference's domain. The store is never mutated when an
// Error is returned.
type Error struct {
	Code    string
	Name    string
	Value   string
	Message string
}

func (e *Error) Error() string {
	if e.Code == CodeUnknownPreference {
		return fmt.Sprintf("%s: %q is not a preference", e.Code, e.Name)
	}
	return fmt.Sprintf("%s: %s=%q: %s", e.Code, e.Name, e.Value, e.Message)
}

// ErrorCode returns the machine-readable code.
func (e *Error) ErrorCode() string { return e.Code }

func unknownPreference(name string) *Error {
	return &Error{Code: CodeUnknownPreference, Name: name}
}

func invalidPreference(name, value, format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidPreference,
		Name:    name,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsUnknown reports whether err, or any error joined into it, is an
// UNKNOWN_PREFERENCE error.
func IsUnknown(err error) bool { return hasCode(err, CodeUnknownPreference) }

// IsInvalid reports whether err, or any error joined into it, is an
// INVALID_PREFERENCE error.
func IsInvalid(err error) bool { return hasCode(err, CodeInvalidPreference) }

// hasCode matches code anywhere in err's tree, joined errors included.
func hasCode(err error, code string) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		if e.Code == code {
			return true
		}
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if hasCode(inner, code) {
				return true
			}
		}
		return false
	}
	return hasCode(errors.Unwrap(err), code)
}

// Invalid builds an INVALID_PREFERENCE error for checks made outside this
// package, such as validating BrailleCode against a loaded repository.
func Invalid(name, value, message string) error {
	return invalidPreference(name, value, "%s", message)
}
