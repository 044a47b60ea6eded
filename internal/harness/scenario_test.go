package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/nb_clearspeak.yaml")
	require.NoError(t, err)

	assert.Equal(t, "nb_clearspeak", s.Name)
	assert.Equal(t, map[string]string{"Language": "nb"}, s.Preferences)
	require.NotEmpty(t, s.Cases)
	assert.Equal(t, "times", s.Cases[0].Name)
	assert.Equal(t, "2 ganger 3", s.Cases[0].Expect)
	require.Len(t, s.Cases[0].Assertions, 3)
	assert.Equal(t, []string{"math", "number", "operator"}, s.Cases[0].Assertions[1].Rules)
}

func TestLoadScenarioResolvesRulesDir(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "s.yaml", `
name: s
description: d
rules_dir: rules
cases:
  - name: c
    mathml: <math><mi>x</mi></math>
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rules"), s.RulesDir)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: s\ndescription: d\ncase: []\n",
			wantErr: "field case not found",
		},
		{
			name:    "missing name",
			yaml:    "description: d\ncases: [{name: c, mathml: m}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: s\ncases: [{name: c, mathml: m}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no cases",
			yaml:    "name: s\ndescription: d\n",
			wantErr: "cases list is required",
		},
		{
			name:    "bad output",
			yaml:    "name: s\ndescription: d\noutput: ssml\ncases: [{name: c, mathml: m}]\n",
			wantErr: "output must be speech or braille",
		},
		{
			name:    "duplicate case",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m}, {name: c, mathml: m}]\n",
			wantErr: `duplicate name "c"`,
		},
		{
			name:    "missing mathml",
			yaml:    "name: s\ndescription: d\ncases: [{name: c}]\n",
			wantErr: "mathml is required",
		},
		{
			name:    "expect and error",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, expect: x, error: E}]\n",
			wantErr: "exclusive",
		},
		{
			name:    "assertion without type",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, assertions: [{rule: r}]}]\n",
			wantErr: "type is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, assertions: [{type: final_state}]}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "trace_contains without rule",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, assertions: [{type: trace_contains}]}]\n",
			wantErr: "rule is required for trace_contains",
		},
		{
			name:    "trace_order without rules",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, assertions: [{type: trace_order}]}]\n",
			wantErr: "rules list is required",
		},
		{
			name:    "negative count",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, assertions: [{type: trace_count, rule: r, count: -1}]}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "output_matches without pattern",
			yaml:    "name: s\ndescription: d\ncases: [{name: c, mathml: m, assertions: [{type: output_matches}]}]\n",
			wantErr: "pattern is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenarioDefaults(t *testing.T) {
	s := &Scenario{Preferences: map[string]string{"Language": "nb", "Verbosity": "Terse"}}
	c := Case{Preferences: map[string]string{"Verbosity": "Verbose"}}

	assert.Equal(t, "speech", s.output(c))
	assert.Equal(t, "braille", s.output(Case{Output: "braille"}))
	assert.Equal(t, map[string]string{"Language": "nb", "Verbosity": "Verbose"}, s.preferences(c))
}
