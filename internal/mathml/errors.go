package mathml

import (
	"errors"
	"fmt"
)

// Error codes for rejected markup.
const (
	CodeMalformedMarkup    = "MALFORMED_MARKUP"
	CodeExpressionTooLarge = "EXPRESSION_TOO_LARGE"
)

// ParseError reports markup that cannot become a canonical tree.
// No partial tree is ever returned alongside a ParseError.
type ParseError struct {
	Code    string
	Path    string // location of the offending element, if known
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Code
	if e.Path != "" {
		msg += " at " + e.Path
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorCode returns the machine-readable code.
func (e *ParseError) ErrorCode() string { return e.Code }

func malformed(path, format string, args ...any) *ParseError {
	return &ParseError{Code: CodeMalformedMarkup, Path: path, Message: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err is a MALFORMED_MARKUP error.
func IsMalformed(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Code == CodeMalformedMarkup
}

// IsTooLarge reports whether err is an EXPRESSION_TOO_LARGE error.
func IsTooLarge(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Code == CodeExpressionTooLarge
}
