package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "en_and_braille.yaml"),
		filepath.Join("testdata", "scenarios", "nb_clearspeak.yaml"),
		filepath.Join("testdata", "scenarios", "nb_simplespeak.yaml"),
	}, paths)
}

func TestRunDir(t *testing.T) {
	result, err := RunDir(context.Background(), "testdata/scenarios", SuiteOptions{})
	require.NoError(t, err)
	assert.True(t, result.Pass(), "failures: %+v", result.Failures)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 52, result.TotalCases)
}

func TestRunDirGolden(t *testing.T) {
	dir := t.TempDir()
	golden := filepath.Join(dir, "golden")
	writeScenario(t, dir, "a.yaml", `
name: a
description: d
cases:
  - name: seven
    mathml: <math><mn>7</mn></math>
`)

	result, err := RunDir(context.Background(), dir, SuiteOptions{GoldenDir: golden})
	require.NoError(t, err)
	assert.False(t, result.Pass())
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Errors[0], "does not exist")

	result, err = RunDir(context.Background(), dir, SuiteOptions{GoldenDir: golden, Update: true})
	require.NoError(t, err)
	assert.True(t, result.Pass())
	assert.FileExists(t, filepath.Join(golden, "a.golden"))

	result, err = RunDir(context.Background(), dir, SuiteOptions{GoldenDir: golden})
	require.NoError(t, err)
	assert.True(t, result.Pass())
}

func TestRunDirReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: bad\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	writeScenario(t, filepath.Join(dir, "nested"), "ok.yml", `
name: ok
description: d
cases:
  - name: seven
    mathml: <math><mn>7</mn></math>
    expect: "7"
`)

	result, err := RunDir(context.Background(), dir, SuiteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "bad.yaml"), result.Failures[0].ScenarioPath)
	assert.Contains(t, result.Failures[0].Errors[0], "failed to load scenario")
}

func TestRunDirEmpty(t *testing.T) {
	_, err := RunDir(context.Background(), t.TempDir(), SuiteOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenarios found")
}
