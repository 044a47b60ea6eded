package mathcat

import (
	"errors"
	"slices"

	"github.com/nlbdev/MathCAT/internal/engine"
	"github.com/nlbdev/MathCAT/internal/mathml"
	"github.com/nlbdev/MathCAT/internal/prefs"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// Error codes. Every error returned by a Session carries one of them,
// available through Code.
const (
	CodeMalformedMarkup        = mathml.CodeMalformedMarkup
	CodeExpressionTooLarge     = mathml.CodeExpressionTooLarge
	CodeUnsupportedLocale      = rules.CodeUnsupportedLocale
	CodeUnsupportedStyle       = rules.CodeUnsupportedStyle
	CodeUnsupportedBrailleCode = rules.CodeUnsupportedBrailleCode
	CodeInvalidPreference      = prefs.CodeInvalidPreference
	CodeUnknownPreference      = prefs.CodeUnknownPreference
	CodeNoActiveExpression     = "NO_ACTIVE_EXPRESSION"
	CodeUnknownNode            = "UNKNOWN_NODE"
	CodeNoApplicableRule       = string(engine.ErrCodeNoApplicableRule)
	CodeAmbiguousRule          = string(engine.ErrCodeAmbiguousRule)
	CodeUnknownIntent          = string(engine.ErrCodeUnknownIntent)
	CodeMissingArg             = string(engine.ErrCodeMissingArg)
	CodeCycleDetected          = string(engine.ErrCodeCycleDetected)
	CodeStepsExceeded          = string(engine.ErrCodeStepsExceeded)
	CodeRulesLoad              = rules.CodeRulesLoad
)

// UsageError reports a call the session cannot serve in its current
// state: rendering before SetMathML, or focusing a node that does not
// exist.
type UsageError struct {
	Code    string
	Message string
}

func (e *UsageError) Error() string { return e.Code + ": " + e.Message }

// ErrorCode returns the machine-readable code.
func (e *UsageError) ErrorCode() string { return e.Code }

// coded is implemented by every error type of this module.
type coded interface {
	ErrorCode() string
}

// Code returns the error code carried by err, or "" when err is nil or
// carries none.
func Code(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// Codes returns every code carried by err in depth-first order, including
// each member of an errors.Join result.
func Codes(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if c, ok := err.(coded); ok {
			out = append(out, c.ErrorCode())
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		walk(errors.Unwrap(err))
	}
	walk(err)
	return out
}

func hasCode(err error, code string) bool { return slices.Contains(Codes(err), code) }

// IsMalformedMarkup reports whether err is a MALFORMED_MARKUP error.
func IsMalformedMarkup(err error) bool { return hasCode(err, CodeMalformedMarkup) }

// IsExpressionTooLarge reports whether err is an EXPRESSION_TOO_LARGE error.
func IsExpressionTooLarge(err error) bool { return hasCode(err, CodeExpressionTooLarge) }

// IsUnsupportedLocale reports whether err is an UNSUPPORTED_LOCALE error.
func IsUnsupportedLocale(err error) bool { return hasCode(err, CodeUnsupportedLocale) }

// IsUnsupportedStyle reports whether err is an UNSUPPORTED_STYLE error.
func IsUnsupportedStyle(err error) bool { return hasCode(err, CodeUnsupportedStyle) }

// IsUnsupportedBrailleCode reports whether err is an
// UNSUPPORTED_BRAILLE_CODE error.
func IsUnsupportedBrailleCode(err error) bool { return hasCode(err, CodeUnsupportedBrailleCode) }

// IsInvalidPreference reports whether err is an INVALID_PREFERENCE error.
func IsInvalidPreference(err error) bool { return hasCode(err, CodeInvalidPreference) }

// IsUnknownPreference reports whether err is an UNKNOWN_PREFERENCE error.
func IsUnknownPreference(err error) bool { return hasCode(err, CodeUnknownPreference) }

// IsNoActiveExpression reports whether err is a NO_ACTIVE_EXPRESSION error.
func IsNoActiveExpression(err error) bool { return hasCode(err, CodeNoActiveExpression) }

// IsUnknownNode reports whether err is an UNKNOWN_NODE error.
func IsUnknownNode(err error) bool { return hasCode(err, CodeUnknownNode) }

// IsNoApplicableRule reports whether err is a NO_APPLICABLE_RULE error.
func IsNoApplicableRule(err error) bool { return hasCode(err, CodeNoApplicableRule) }

// IsRulesLoad reports whether err is a RULES_LOAD error.
func IsRulesLoad(err error) bool { return hasCode(err, CodeRulesLoad) }
