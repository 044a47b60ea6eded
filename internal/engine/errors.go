package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error detected while rendering a tree.
//
// Runtime errors include:
//   - No applicable rule: no rule of the active set matches a node
//   - Ambiguous rule: two satisfied rules of equal specificity
//   - Unknown intent: no intent rule exists and recovery is Error
//   - Missing arg: an intent template references an absent $arg
//   - Cycle detected: a rule re-entered itself on the same node
//   - Steps exceeded: the render applied more rules than allowed
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the node, e.g. /math/mrow[1]/mo[2].
	Path string

	// Rule names the rule involved, when there is one.
	Rule string

	// RuleSet is the ID of the active rule set.
	RuleSet string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeNoApplicableRule RuntimeErrorCode = "NO_APPLICABLE_RULE"
	ErrCodeAmbiguousRule    RuntimeErrorCode = "AMBIGUOUS_RULE"
	ErrCodeUnknownIntent    RuntimeErrorCode = "UNKNOWN_INTENT"
	ErrCodeMissingArg       RuntimeErrorCode = "MISSING_ARG"

	// ErrCodeCycleDetected indicates a rule selected the node it was
	// already rendering.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeStepsExceeded indicates the render exceeded max steps.
	ErrCodeStepsExceeded RuntimeErrorCode = "STEPS_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Path != "" && e.Rule != "" {
		return fmt.Sprintf("%s: %s (node=%s, rule=%s)", e.Code, e.Message, e.Path, e.Rule)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the stable code string.
func (e *RuntimeError) ErrorCode() string { return string(e.Code) }

// IsRuntimeError reports whether err carries a RuntimeError with code.
// An empty code matches any runtime error.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	return code == "" || re.Code == code
}

// IsNoApplicableRule reports whether err is a NO_APPLICABLE_RULE error.
func IsNoApplicableRule(err error) bool {
	return IsRuntimeError(err, ErrCodeNoApplicableRule)
}

// IsAmbiguousRule reports whether err is an AMBIGUOUS_RULE error.
func IsAmbiguousRule(err error) bool {
	return IsRuntimeError(err, ErrCodeAmbiguousRule)
}

// IsUnknownIntent reports whether err is an UNKNOWN_INTENT error.
func IsUnknownIntent(err error) bool {
	return IsRuntimeError(err, ErrCodeUnknownIntent)
}

// IsMissingArg reports whether err is a MISSING_ARG error.
func IsMissingArg(err error) bool {
	return IsRuntimeError(err, ErrCodeMissingArg)
}

// IsCycleError reports whether err is a CYCLE_DETECTED error.
func IsCycleError(err error) bool {
	return IsRuntimeError(err, ErrCodeCycleDetected)
}

// IsStepsExceeded reports whether err is a STEPS_EXCEEDED error.
func IsStepsExceeded(err error) bool {
	return IsRuntimeError(err, ErrCodeStepsExceeded)
}
