package engine

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/mathml"
	"github.com/nlbdev/MathCAT/internal/prefs"
	"github.com/nlbdev/MathCAT/internal/rules"
)

const speechHeader = "kind: speech\nlocale: en\nstyle: Test\n"

// testRules compiles a single speech rule file.
func testRules(t *testing.T, body string) *rules.RuleSet {
	t.Helper()
	repo, err := rules.Load(fstest.MapFS{
		"test.yaml": {Data: []byte(speechHeader + body)},
	})
	require.NoError(t, err)
	rs, err := repo.Speech("en", "Test")
	require.NoError(t, err)
	return rs
}

func parse(t *testing.T, markup string) *mathml.Node {
	t.Helper()
	root, err := mathml.Parse(markup)
	require.NoError(t, err)
	return root
}

func defaults() prefs.Snapshot { return prefs.NewStore().Snapshot() }

func speak(t *testing.T, rs *rules.RuleSet, p prefs.Snapshot, markup string) (string, error) {
	t.Helper()
	tokens, err := New(rs, p).Render(parse(t, markup))
	if err != nil {
		return "", err
	}
	return ir.Debug(tokens), nil
}

const basicRules = `
definitions:
  names: {a: alpha}
  operators: {"+": plus, "=": equals}
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: row
    tag: mrow
    then: [{x: "*"}]
  - name: named
    tag: mi
    when: [{in: names}]
    then: [{lookup: names}]
  - name: capital
    tag: mi
    when: [{test: letter-case, is: [upper]}]
    then: [{word: cap}, {text: lower}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
  - name: number
    tag: mn
    then: [{text: as-is}]
  - name: operator
    tag: mo
    then: [{lookup: operators}]
  - name: fraction
    tag: mfrac
    then: [{x: "*[1]"}, {word: over}, {pause: short}, {x: "*[2]"}]
`

func TestRenderTemplateItems(t *testing.T) {
	rs := testRules(t, basicRules)

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"lookup and text", `<math><mi>A</mi><mo>+</mo><mi>a</mi><mo>=</mo><mn>2</mn></math>`, "cap a plus alpha equals 2"},
		{"lookup falls back to text", `<math><mi>x</mi><mo>&lt;</mo><mn>1</mn></math>`, "x < 1"},
		{"selection order and pause", `<math><mfrac><mn>1</mn><mi>b</mi></mfrac></math>`, "1 over <short> b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := speak(t, rs, defaults(), tt.markup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderPriorityBeatsConditionCount(t *testing.T) {
	rs := testRules(t, `
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: two-conditions
    tag: mn
    when: [{text: ["7"]}, {test: integer}]
    then: [{word: seven}]
  - name: preferred
    tag: mn
    priority: 1
    then: [{word: number}]
`)
	got, err := speak(t, rs, defaults(), `<math><mn>7</mn></math>`)
	require.NoError(t, err)
	assert.Equal(t, "number", got)
}

func TestRenderNegatedAndTargetedConditions(t *testing.T) {
	rs := testRules(t, `
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: before-number
    tag: mi
    when:
      - xpath: "self::mi"
        of: "following-sibling::*[1][self::mn]"
    then: [{word: before}, {text: as-is}]
  - name: not-x
    tag: mi
    when: [{text: ["x"], not: true}]
    then: [{word: other}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
  - name: number
    tag: mn
    then: [{text: as-is}]
  - name: operator
    tag: mo
    then: [{text: as-is}]
`)
	// y has no following sibling: "of" selects nothing so the condition fails
	got, err := speak(t, rs, defaults(), `<math><mi>x</mi><mo>=</mo><mi>y</mi></math>`)
	require.NoError(t, err)
	assert.Equal(t, "x = other", got)
}

func TestRenderPreferenceCondition(t *testing.T) {
	rs := testRules(t, `
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: terse
    tag: mi
    when: [{pref: {Verbosity: [Terse]}}]
    then: [{text: as-is}]
  - name: wordy
    tag: mi
    then: [{word: the variable}, {text: as-is}]
`)
	p := defaults()

	got, err := speak(t, rs, p, `<math><mi>x</mi></math>`)
	require.NoError(t, err)
	assert.Equal(t, "the variable x", got)

	got, err = speak(t, rs, p.With(prefs.Verbosity, prefs.VerbosityTerse), `<math><mi>x</mi></math>`)
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestRenderAmbiguousRule(t *testing.T) {
	rs := testRules(t, `
definitions:
  names: {B: bravo}
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: named
    tag: mi
    when: [{in: names}]
    then: [{lookup: names}]
  - name: capital
    tag: mi
    when: [{test: letter-case, is: [upper]}]
    then: [{word: cap}, {text: lower}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
`)
	_, err := speak(t, rs, defaults(), `<math><mi>B</mi></math>`)
	require.Error(t, err)
	assert.True(t, IsAmbiguousRule(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/math/mi[1]", re.Path)
	assert.Equal(t, "named", re.Rule)
	assert.Contains(t, re.Message, "capital")
	assert.Equal(t, "AMBIGUOUS_RULE", re.ErrorCode())

	// only one rule applies to a lowercase name
	got, err := speak(t, rs, defaults(), `<math><mi>z</mi></math>`)
	require.NoError(t, err)
	assert.Equal(t, "z", got)
}

func TestRenderNoApplicableRule(t *testing.T) {
	rs := testRules(t, `
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
`)
	_, err := speak(t, rs, defaults(), `<math><mi>x</mi><mo>+</mo><mi>y</mi></math>`)
	require.Error(t, err)
	assert.True(t, IsNoApplicableRule(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/math/mo[1]", re.Path)
	assert.Equal(t, rs.ID(), re.RuleSet)
	assert.Contains(t, err.Error(), "NO_APPLICABLE_RULE")
}

const intentRules = `
rules:
  - name: interval
    intent: open-interval
    params: [start, end]
    then: [{word: open interval from}, {x: $start}, {word: to}, {x: $end}]
  - name: positional
    intent: closed-interval
    then: [{word: closed interval from}, {x: $1}, {word: to}, {x: $2}]
  - name: broken
    intent: half-interval
    params: [start, end, step]
    then: [{x: $step}]
  - name: times
    intent: times
    params: [left, right]
    then: [{x: $left}, {word: times}, {x: $right}]
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: row
    tag: mrow
    then: [{x: "*"}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
  - name: operator
    tag: mo
    then: [{text: as-is}]
`

func TestRenderIntent(t *testing.T) {
	rs := testRules(t, intentRules)
	interval := `<math><mrow intent="%s"><mo>(</mo><mi arg="a">c</mi><mo>,</mo><mi arg="b">d</mi><mo>)</mo></mrow></math>`

	t.Run("intent rule wins over tag rules", func(t *testing.T) {
		got, err := speak(t, rs, defaults(), fmt.Sprintf(interval, "open-interval($a,$b)"))
		require.NoError(t, err)
		assert.Equal(t, "open interval from c to d", got)
	})

	t.Run("params bind by position, not by arg name", func(t *testing.T) {
		markup := `<math><mrow intent="open-interval($lo,$hi)"><mo>(</mo><mi arg="lo">c</mi><mo>,</mo><mi arg="hi">d</mi><mo>)</mo></mrow></math>`
		got, err := speak(t, rs, defaults(), markup)
		require.NoError(t, err)
		assert.Equal(t, "open interval from c to d", got)
	})

	t.Run("reordered args", func(t *testing.T) {
		got, err := speak(t, rs, defaults(), fmt.Sprintf(interval, "open-interval($b,$a)"))
		require.NoError(t, err)
		assert.Equal(t, "open interval from d to c", got)
	})

	t.Run("numbered params", func(t *testing.T) {
		got, err := speak(t, rs, defaults(), fmt.Sprintf(interval, "closed-interval($a,$b)"))
		require.NoError(t, err)
		assert.Equal(t, "closed interval from c to d", got)
	})

	t.Run("literal and nested args", func(t *testing.T) {
		got, err := speak(t, rs, defaults(), fmt.Sprintf(interval, "open-interval(0,times($a,$b))"))
		require.NoError(t, err)
		assert.Equal(t, "open interval from 0 to c times d", got)

		got, err = speak(t, rs, defaults(), fmt.Sprintf(interval, "open-interval($a,plus-sign($b))"))
		require.NoError(t, err)
		assert.Equal(t, "open interval from c to plus sign", got)
	})

	t.Run("unknown intent falls through", func(t *testing.T) {
		got, err := speak(t, rs, defaults(), fmt.Sprintf(interval, "semi-interval($a,$b)"))
		require.NoError(t, err)
		assert.Equal(t, "( c , d )", got)
	})

	t.Run("unknown intent with error recovery", func(t *testing.T) {
		p := defaults().With(prefs.IntentErrorRecovery, prefs.RecoveryError)
		_, err := speak(t, rs, p, fmt.Sprintf(interval, "semi-interval($a,$b)"))
		require.Error(t, err)
		assert.True(t, IsUnknownIntent(err))
		assert.Contains(t, err.Error(), "semi-interval")
	})

	t.Run("missing arg", func(t *testing.T) {
		_, err := speak(t, rs, defaults(), fmt.Sprintf(interval, "half-interval($a,$b)"))
		require.Error(t, err)
		assert.True(t, IsMissingArg(err))
		assert.Contains(t, err.Error(), "$step")
	})
}

func TestRenderIntentConditionFallsThrough(t *testing.T) {
	rs := testRules(t, `
rules:
  - name: verbose-power
    intent: power
    params: [base, exp]
    when: [{pref: {Verbosity: [Verbose]}}]
    then: [{x: $base}, {word: raised to the power}, {x: $exp}]
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: superscript
    tag: msup
    then: [{x: "*[1]"}, {word: to the}, {x: "*[2]"}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
`)
	markup := `<math><msup intent="power($base,$exp)"><mi arg="base">x</mi><mi arg="exp">n</mi></msup></math>`

	got, err := speak(t, rs, defaults(), markup)
	require.NoError(t, err)
	assert.Equal(t, "x to the n", got)

	got, err = speak(t, rs, defaults().With(prefs.Verbosity, prefs.VerbosityVerbose), markup)
	require.NoError(t, err)
	assert.Equal(t, "x raised to the power n", got)
}

const runRules = `
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: and-so-on
    run: [{tag: mo, text: [","]}, {tag: mi, text: ["…"]}]
    at: last
    then: [{word: and so on}]
  - name: up-to
    run: [{tag: mo, text: [","]}, {tag: mi, text: ["…"]}, {tag: mo, text: [","]}]
    at: interior
    when: [{pref: {ClearSpeak_Ellipses: [AndSoOn]}}]
    then: [{word: and so on up to}]
  - name: identifier
    tag: mi
    then: [{text: as-is}]
  - name: number
    tag: mn
    then: [{text: as-is}]
  - name: comma
    tag: mo
    then: [{word: comma}]
`

func TestRenderRuns(t *testing.T) {
	rs := testRules(t, runRules)
	andSoOn := defaults().With("ClearSpeak_Ellipses", "AndSoOn")

	tests := []struct {
		name   string
		p      prefs.Snapshot
		markup string
		want   string
	}{
		{
			name:   "trailing run",
			p:      defaults(),
			markup: `<math><mn>1</mn><mo>,</mo><mn>2</mn><mo>,</mo><mi>…</mi></math>`,
			want:   "1 comma 2 and so on",
		},
		{
			name:   "leading ellipsis is not a trailing run",
			p:      defaults(),
			markup: `<math><mi>…</mi><mo>,</mo><mn>1</mn></math>`,
			want:   "… comma 1",
		},
		{
			name:   "interior run needs its preference",
			p:      defaults(),
			markup: `<math><mn>1</mn><mo>,</mo><mi>…</mi><mo>,</mo><mn>9</mn></math>`,
			want:   "1 comma … comma 9",
		},
		{
			name:   "interior run",
			p:      andSoOn,
			markup: `<math><mn>1</mn><mo>,</mo><mi>…</mi><mo>,</mo><mn>9</mn></math>`,
			want:   "1 and so on up to 9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := speak(t, rs, tt.p, tt.markup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderCycleDetected(t *testing.T) {
	rs := testRules(t, `
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: self
    tag: mi
    then: [{word: again}, {x: "."}]
`)
	_, err := speak(t, rs, defaults(), `<math><mi>x</mi></math>`)
	require.Error(t, err)
	assert.True(t, IsCycleError(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "self", re.Rule)
}

func TestRenderStepsQuota(t *testing.T) {
	rs := testRules(t, basicRules)
	root := parse(t, `<math><mi>a</mi><mo>+</mo><mi>b</mi></math>`)

	_, err := New(rs, defaults(), WithMaxSteps(3)).Render(root)
	require.Error(t, err)
	assert.True(t, IsStepsExceeded(err))
	assert.Contains(t, err.Error(), "exceeded 3")

	tokens, err := New(rs, defaults(), WithMaxSteps(4)).Render(root)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)

	_, err = New(rs, defaults(), WithMaxSteps(0)).Render(root)
	require.NoError(t, err)
}

func TestRenderBrailleChars(t *testing.T) {
	repo, err := rules.Load(fstest.MapFS{
		"braille.yaml": {Data: []byte(`
kind: braille
code: Test
definitions:
  letters: {a: "⠁", b: "⠃", default: "⠿"}
  digits: {"1": "⠂", "2": "⠆"}
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: identifier
    tag: mi
    then: [{chars: letters}]
  - name: number
    tag: mn
    then: [{braille: "⠼"}, {chars: digits}]
`)},
	})
	require.NoError(t, err)
	rs, err := repo.Braille("Test")
	require.NoError(t, err)

	tokens, err := New(rs, defaults()).Render(parse(t, `<math><mi>abz</mi></math>`))
	require.NoError(t, err)
	assert.Equal(t, []ir.Token{ir.BrailleSymbol("⠁⠃⠿")}, tokens)

	tokens, err = New(rs, defaults()).Render(parse(t, `<math><mn>12</mn></math>`))
	require.NoError(t, err)
	assert.Equal(t, []ir.Token{ir.BrailleSymbol("⠼"), ir.BrailleSymbol("⠂⠆")}, tokens)
}

func TestTraceRecordsRuleApplications(t *testing.T) {
	rs := testRules(t, basicRules)

	tokens, steps, err := New(rs, defaults()).Trace(parse(t, `<math><mn>1</mn><mo>+</mo><mi>a</mi></math>`))
	require.NoError(t, err)
	assert.Equal(t, "1 plus alpha", ir.Debug(tokens))
	assert.Equal(t, []Step{
		{Rule: "math", File: "test.yaml", Path: "/math", Depth: 1},
		{Rule: "number", File: "test.yaml", Path: "/math/mn[1]", Depth: 2},
		{Rule: "operator", File: "test.yaml", Path: "/math/mo[1]", Depth: 2},
		{Rule: "named", File: "test.yaml", Path: "/math/mi[1]", Depth: 2},
	}, steps)
}

func TestRenderDefaultRules(t *testing.T) {
	repo, err := rules.Default()
	require.NoError(t, err)

	nb, err := repo.Speech("nb", "ClearSpeak")
	require.NoError(t, err)
	got, err := speak(t, nb, defaults(), `<math><mn>2</mn><mo>×</mo><mn>3</mn></math>`)
	require.NoError(t, err)
	assert.Equal(t, "2 ganger 3", got)

	// identical input, rule set and snapshot give identical output
	again, err := speak(t, nb, defaults(), `<math><mn>2</mn><mo>×</mo><mn>3</mn></math>`)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}
