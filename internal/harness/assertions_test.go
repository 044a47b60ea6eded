package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlbdev/MathCAT"
)

var sampleTrace = []mathcat.TraceStep{
	{Rule: "math", File: "nb/shared.yaml", Path: "/math", Depth: 1},
	{Rule: "number", File: "nb/shared.yaml", Path: "/math/mn[1]", Depth: 2},
	{Rule: "operator", File: "nb/shared.yaml", Path: "/math/mo[1]", Depth: 2},
	{Rule: "number", File: "nb/shared.yaml", Path: "/math/mn[2]", Depth: 2},
}

func TestAssertTraceContains(t *testing.T) {
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Rule: "operator"}))
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Rule: "number", Path: "/math/mn[2]"}))

	err := assertTraceContains(sampleTrace, Assertion{Rule: "number", Path: "/math/mo[1]"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "rule number at /math/mo[1]", ae.Expected)
	assert.Contains(t, err.Error(), "[3]   operator at /math/mo[1] (nb/shared.yaml)")
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Rules: []string{"math", "operator"}}))
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Rules: []string{"number", "operator"}}))

	err := assertTraceOrder(sampleTrace, Assertion{Rules: []string{"operator", "number"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator (pos 3) should be before number (pos 2)")

	err = assertTraceOrder(sampleTrace, Assertion{Rules: []string{"math", "fraction"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing rule: fraction")
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Rule: "number", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Rule: "fraction", Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Rule: "number", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 applications")
}

func TestAssertOutputMatches(t *testing.T) {
	assert.NoError(t, assertOutputMatches("2 ganger 3", Assertion{Pattern: `^\d+ ganger \d+$`}))
	assert.Error(t, assertOutputMatches("2 times 3", Assertion{Pattern: "ganger"}))

	err := assertOutputMatches("x", Assertion{Pattern: "("})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pattern")
}

func TestEvaluateAssertions(t *testing.T) {
	cr := CaseResult{Name: "times", Output: "2 ganger 3", Trace: sampleTrace}
	errs := EvaluateAssertions(cr, []Assertion{
		{Type: AssertTraceContains, Rule: "math"},
		{Type: AssertTraceCount, Rule: "operator", Count: 2},
		{Type: AssertOutputMatches, Pattern: "ganger"},
		{Type: "final_state"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], `unknown assertion type "final_state"`)
}
