package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes (E200-E299) and warnings (W300-W399).
const (
	ErrSchema = "E200" // document does not match the rule file schema

	// Rule shape errors (E201-E206)
	ErrUnknownTag        = "E201" // tag is not a canonical MathML element
	ErrBadShape          = "E202" // rule needs exactly one of tag, intent, run
	ErrUnknownClassifier = "E203" // test names no classifier
	ErrInvalidXPath      = "E204" // xpath, of or x does not compile
	ErrConditionKind     = "E205" // condition needs exactly one test kind
	ErrItemAction        = "E206" // item needs exactly one action

	// Reference errors (E207-E214)
	ErrUnknownTable       = "E207" // in, lookup or chars names no table
	ErrDuplicateRule      = "E208" // duplicate rule name in a rule set
	ErrSpecificity        = "E209" // two rules can never be told apart
	ErrIncludeNotFound    = "E210" // include names a missing file
	ErrIncludeCycle       = "E211" // include chain loops
	ErrUnknownPunctuation = "E212" // punct names no punctuation entry
	ErrMisplacedAt        = "E213" // at on a rule that is not a run
	ErrUnknownPreference  = "E214" // pref names no preference

	// Rule set errors (E215-E219)
	ErrDuplicateRuleSet = "E215" // (locale, style) or braille code defined twice
	ErrMisplacedRef     = "E216" // $ref or params outside an intent rule
	ErrMissingHeader    = "E217" // speech without locale/style, braille without code
	ErrNoFiles          = "E218" // rule directory missing or empty
	ErrUnknownParam     = "E219" // $ref names no parameter, or a parameter repeats

	WarnNoCatchAll = "W301" // a tag has rules but none without conditions
)

// CodeRulesLoad is the error code of LoadError.
const CodeRulesLoad = "RULES_LOAD"

// ValidationError is one problem found in a rule file.
type ValidationError struct {
	File    string `json:"file"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.File, e.Message)
}

// IsWarning reports whether the problem does not prevent loading.
func (e ValidationError) IsWarning() bool { return strings.HasPrefix(e.Code, "W") }

// LoadError reports every error found while loading a rule repository.
type LoadError struct {
	Errors []ValidationError
}

func (e *LoadError) Error() string {
	if len(e.Errors) == 1 {
		return "loading rules: " + e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("loading rules: %d errors:\n  %s", len(e.Errors), strings.Join(msgs, "\n  "))
}

// ErrorCode returns RULES_LOAD.
func (e *LoadError) ErrorCode() string { return CodeRulesLoad }

// IsLoadError reports whether err is a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Lookup error codes.
const (
	CodeUnsupportedLocale      = "UNSUPPORTED_LOCALE"
	CodeUnsupportedStyle       = "UNSUPPORTED_STYLE"
	CodeUnsupportedBrailleCode = "UNSUPPORTED_BRAILLE_CODE"
)

// LookupError reports a rule set the repository cannot provide.
type LookupError struct {
	Code    string
	Message string
}

func (e *LookupError) Error() string { return e.Code + ": " + e.Message }

// ErrorCode returns the machine-readable code.
func (e *LookupError) ErrorCode() string { return e.Code }

// IsLookupError reports whether err is a LookupError with the given code.
func IsLookupError(err error, code string) bool {
	var le *LookupError
	return errors.As(err, &le) && le.Code == code
}
