package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlbdev/MathCAT/internal/rules"
)

func TestRunScenarioFiles(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Cases, len(scenario.Cases))
		})
	}
}

func TestRunRecordsCases(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/en_and_braille.yaml")
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)

	nemeth, ok := result.Case("nemeth")
	require.True(t, ok)
	assert.Equal(t, "⠼⠆⠈⠡⠒", nemeth.Output)
	assert.NotEmpty(t, nemeth.Trace)
	assert.Equal(t, "Braille/Nemeth.yaml", nemeth.Trace[0].File)

	malformed, ok := result.Case("malformed")
	require.True(t, ok)
	assert.Equal(t, "MALFORMED_MARKUP", malformed.Error)
	assert.Empty(t, malformed.Output)
	assert.Empty(t, malformed.Trace)

	_, ok = result.Case("no such case")
	assert.False(t, ok)
}

func TestRunReportsFailures(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "every way a case can fail",
		Preferences: map[string]string{"Language": "nb"},
		Cases: []Case{
			{Name: "wrong output", MathML: `<math><mn>2</mn></math>`, Expect: "to"},
			{Name: "unexpected error", MathML: `<math><mfoo/></math>`},
			{Name: "wrong error", MathML: `<math><mn>2</mn></math>`, Error: "UNKNOWN_NODE"},
			{
				Name:       "failed assertion",
				MathML:     `<math><mn>2</mn></math>`,
				Assertions: []Assertion{{Type: AssertTraceContains, Rule: "fraction"}},
			},
			{Name: "passing", MathML: `<math><mn>2</mn></math>`, Expect: "2"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `case "wrong output": expected output "to", got "2"`)
	assert.Contains(t, result.Errors[1], `case "unexpected error": unexpected error MALFORMED_MARKUP`)
	assert.Contains(t, result.Errors[2], `case "wrong error": expected error UNKNOWN_NODE`)
	assert.Contains(t, result.Errors[3], "rule fraction")
}

func TestRunIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/nb_clearspeak.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunWithRulesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rules", "de"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules", "de", "ClearSpeak.yaml"), []byte(`kind: speech
locale: de
style: ClearSpeak
rules:
  - name: math
    tag: math
    then: [{x: "*"}]
  - name: number
    tag: mn
    then: [{text: as-is}]
  - name: times
    tag: mo
    then: [{word: mal}]
`), 0o644))
	path := writeScenario(t, dir, "de.yaml", `
name: de
description: custom rules
rules_dir: rules
preferences:
  Language: de
cases:
  - name: times
    mathml: <math><mn>2</mn><mo>×</mo><mn>3</mn></math>
    expect: 2 mal 3
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunMissingRulesDir(t *testing.T) {
	_, err := Run(&Scenario{Name: "s", RulesDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rules")
}

func TestHarnessSharesRepository(t *testing.T) {
	repo, err := rules.Default()
	require.NoError(t, err)
	h := New(repo, nil)

	scenario := &Scenario{Name: "s", Cases: []Case{{Name: "c", MathML: `<math><mn>7</mn></math>`, Expect: "7"}}}
	assert.True(t, h.Run(context.Background(), scenario).Pass)
	assert.True(t, h.Run(context.Background(), scenario).Pass)
}
