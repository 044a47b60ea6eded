package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ScenarioPattern selects scenario files below a suite directory.
const ScenarioPattern = "**/*.{yaml,yml}"

// SuiteOptions controls RunDir.
type SuiteOptions struct {
	// GoldenDir enables golden comparison of every scenario snapshot.
	GoldenDir string

	// Update rewrites golden files instead of comparing them.
	Update bool
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	TotalCases     int               `json:"total_cases"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure describes a scenario that did not pass.
type ScenarioFailure struct {
	Scenario     string   `json:"scenario,omitempty"`
	ScenarioPath string   `json:"scenario_path"`
	Errors       []string `json:"errors"`
}

// Pass reports whether every scenario passed.
func (r *SuiteResult) Pass() bool { return r.Failed == 0 }

func (r *SuiteResult) fail(name, path string, errs ...string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{Scenario: name, ScenarioPath: path, Errors: errs})
}

// FindScenarios returns the scenario files below dir in lexical order.
func FindScenarios(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), ScenarioPattern)
	if err != nil {
		return nil, fmt.Errorf("find scenarios in %s: %w", dir, err)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return paths, nil
}

// RunDir loads and runs every scenario below dir. Scenarios sharing a
// rules_dir share one repository.
func RunDir(ctx context.Context, dir string, opts SuiteOptions) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}

	harnesses := make(map[string]*Harness)
	result := &SuiteResult{}
	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail("", path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		h, ok := harnesses[scenario.RulesDir]
		if !ok {
			repo, err := loadRules(scenario.RulesDir)
			if err != nil {
				result.fail(scenario.Name, path, err.Error())
				continue
			}
			h = New(repo, nil)
			harnesses[scenario.RulesDir] = h
		}

		run := h.Run(ctx, scenario)
		result.TotalCases += len(run.Cases)
		errs := run.Errors

		if opts.GoldenDir != "" {
			data, err := Snapshot(scenario.Name, run)
			if err == nil {
				err = CheckGolden(opts.GoldenDir, scenario.Name, data, opts.Update)
			}
			if err != nil {
				errs = append(errs, err.Error())
			}
		}

		if len(errs) > 0 {
			result.fail(scenario.Name, path, errs...)
			continue
		}
		result.Passed++
	}
	return result, nil
}
