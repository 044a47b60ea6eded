package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlbdev/MathCAT/internal/harness"
)

const harnessScenarios = "../harness/testdata/scenarios"

const failingScenario = `
name: wrong_expectation
description: expects the wrong reading
cases:
  - name: times
    mathml: <math><mn>2</mn><mo>×</mo><mn>3</mn></math>
    preferences:
      Language: nb
    expect: 2 pluss 3
`

func writeScenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, errOut, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandPasses(t *testing.T) {
	out, _, err := execute(t, "test", harnessScenarios)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ nb_clearspeak.yaml")
	assert.Contains(t, out, "✓ en_and_braille.yaml")
	assert.Contains(t, out, "Results: 3 passed, 0 failed, 3 total (52 cases)")
}

func TestTestCommandJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", harnessScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   harness.SuiteResult `json:"data"`
	}
	decodeJSON(t, out, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.TotalScenarios)
	assert.Equal(t, 52, resp.Data.TotalCases)
	assert.True(t, resp.Data.Pass())
}

func TestTestCommandFailure(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{"wrong.yaml": failingScenario})

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "2 ganger 3")
	assert.Contains(t, out, "Results: 0 passed, 1 failed, 1 total (1 cases)")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{"wrong.yaml": failingScenario})

	out, _, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)

	var resp struct {
		Status string              `json:"status"`
		Error  *CLIError           `json:"error"`
		Data   harness.SuiteResult `json:"data"`
	}
	decodeJSON(t, out, &resp)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Failures, 1)
	assert.Equal(t, "wrong_expectation", resp.Data.Failures[0].Scenario)
}

func TestTestCommandGoldenUpdate(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")

	// Comparing against missing golden files fails.
	_, _, err := execute(t, "test", "--golden-dir", golden, harnessScenarios)
	require.Error(t, err)

	_, _, err = execute(t, "test", "--golden-dir", golden, "--update", harnessScenarios)
	require.NoError(t, err)

	entries, err := os.ReadDir(golden)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	out, _, err := execute(t, "test", "--golden-dir", golden, harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "3 passed")
}

func TestTestCommandUpdateNeedsGoldenDir(t *testing.T) {
	_, _, err := execute(t, "test", "--update", harnessScenarios)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
