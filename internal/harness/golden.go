package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/nlbdev/MathCAT/internal/ir"
)

// GoldenDir is the fixture directory used by RunWithGolden.
const GoldenDir = "testdata/golden"

// Snapshot serializes the cases of a result as canonical JSON. Outputs,
// error codes and traces are included; pass/fail state is not.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	cases := make([]any, len(result.Cases))
	for i, c := range result.Cases {
		trace := make([]any, len(c.Trace))
		for j, step := range c.Trace {
			trace[j] = map[string]any{
				"rule":  step.Rule,
				"file":  step.File,
				"path":  step.Path,
				"depth": step.Depth,
			}
		}
		entry := map[string]any{
			"name":  c.Name,
			"trace": trace,
		}
		if c.Output != "" {
			entry["output"] = c.Output
		}
		if c.Error != "" {
			entry["error"] = c.Error
		}
		cases[i] = entry
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"cases":    cases,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// ErrGoldenMismatch is returned by CheckGolden when a snapshot differs
// from its golden file.
var ErrGoldenMismatch = errors.New("snapshot differs from golden file")

// CheckGolden compares data with dir/name.golden outside of go test. With
// update set, the file is written instead. A missing golden file is a
// mismatch unless update is set.
func CheckGolden(dir, name string, data []byte, update bool) error {
	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist (run with --update)", ErrGoldenMismatch, path)
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
