package harness

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nlbdev/MathCAT"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []mathcat.TraceStep // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s%s at %s (%s)\n", i+1, strings.Repeat("  ", step.Depth-1), step.Rule, step.Path, step.File)
		}
	}

	return buf.String()
}

// assertTraceContains checks that the rule was applied, at the given path
// when one is set.
func assertTraceContains(trace []mathcat.TraceStep, assertion Assertion) error {
	for _, step := range trace {
		if step.Rule == assertion.Rule && (assertion.Path == "" || step.Path == assertion.Path) {
			return nil
		}
	}

	expected := "rule " + assertion.Rule
	if assertion.Path != "" {
		expected += " at " + assertion.Path
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the rules are first applied in the given
// order. Other rules may come in between.
func assertTraceOrder(trace []mathcat.TraceStep, assertion Assertion) error {
	positions := make(map[string]int)
	for i, step := range trace {
		if positions[step.Rule] == 0 {
			positions[step.Rule] = i + 1 // 1-indexed for readability
		}
	}

	for _, rule := range assertion.Rules {
		if positions[rule] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all rules present: %v", assertion.Rules),
				Actual:   fmt.Sprintf("missing rule: %s", rule),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Rules); i++ {
		prev := assertion.Rules[i-1]
		curr := assertion.Rules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("rules in order: %v", assertion.Rules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the rule is applied exactly Count times.
func assertTraceCount(trace []mathcat.TraceStep, assertion Assertion) error {
	count := 0
	for _, step := range trace {
		if step.Rule == assertion.Rule {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d applications of %s", assertion.Count, assertion.Rule),
			Actual:   fmt.Sprintf("%d applications", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertOutputMatches checks the output against a regular expression.
func assertOutputMatches(output string, assertion Assertion) error {
	re, err := regexp.Compile(assertion.Pattern)
	if err != nil {
		return fmt.Errorf("output_matches: bad pattern %q: %w", assertion.Pattern, err)
	}
	if !re.MatchString(output) {
		return &AssertionError{
			Type:     AssertOutputMatches,
			Expected: fmt.Sprintf("output matching %q", assertion.Pattern),
			Actual:   fmt.Sprintf("%q", output),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against a case result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result CaseResult, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertOutputMatches:
			err = assertOutputMatches(result.Output, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
