package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nlbdev/MathCAT"
)

// Scenario defines a group of render cases.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RulesDir is an optional rule directory. Relative paths are resolved
	// against the scenario file. Empty means the embedded rules.
	RulesDir string `yaml:"rules_dir,omitempty"`

	// Output is the default output of the cases: speech or braille.
	// Defaults to speech.
	Output string `yaml:"output,omitempty"`

	// Preferences apply to every case.
	Preferences map[string]string `yaml:"preferences,omitempty"`

	Cases []Case `yaml:"cases"`
}

// Case is one expression rendered in a fresh session.
type Case struct {
	Name   string `yaml:"name"`
	MathML string `yaml:"mathml"`

	// Output overrides the scenario output.
	Output string `yaml:"output,omitempty"`

	// Preferences are applied after the scenario preferences.
	Preferences map[string]string `yaml:"preferences,omitempty"`

	// NavHint focuses a braille render on a node ID.
	NavHint string `yaml:"nav_hint,omitempty"`

	// Expect is the exact expected output.
	Expect string `yaml:"expect,omitempty"`

	// Error is the expected error code. Exclusive with Expect.
	Error string `yaml:"error,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates the trace or output of a case.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check rule appears in trace, optionally at Path
	// - "trace_order": Check rules first appear in order
	// - "trace_count": Check rule appears exactly Count times
	// - "output_matches": Check output matches Pattern
	Type string `yaml:"type"`

	Rule    string   `yaml:"rule,omitempty"`
	Path    string   `yaml:"path,omitempty"`
	Rules   []string `yaml:"rules,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Pattern string   `yaml:"pattern,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertOutputMatches = "output_matches"
)

// output returns the effective output of c within s.
func (s *Scenario) output(c Case) string {
	if c.Output != "" {
		return c.Output
	}
	if s.Output != "" {
		return s.Output
	}
	return mathcat.OutputSpeech
}

// preferences merges the scenario and case preferences.
func (s *Scenario) preferences(c Case) map[string]string {
	merged := make(map[string]string, len(s.Preferences)+len(c.Preferences))
	for k, v := range s.Preferences {
		merged[k] = v
	}
	for k, v := range c.Preferences {
		merged[k] = v
	}
	return merged
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rules_dir is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.RulesDir != "" && !filepath.IsAbs(scenario.RulesDir) {
		scenario.RulesDir = filepath.Join(filepath.Dir(path), scenario.RulesDir)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := validateOutput(s.Output); err != nil {
		return err
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.MathML == "" {
			return fmt.Errorf("cases[%d]: mathml is required", i)
		}
		if c.Expect != "" && c.Error != "" {
			return fmt.Errorf("cases[%d]: expect and error are exclusive", i)
		}
		if err := validateOutput(c.Output); err != nil {
			return fmt.Errorf("cases[%d]: %w", i, err)
		}
		for j, a := range c.Assertions {
			if err := validateAssertion(j, &a); err != nil {
				return fmt.Errorf("cases[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func validateOutput(output string) error {
	switch output {
	case "", mathcat.OutputSpeech, mathcat.OutputBraille:
		return nil
	default:
		return fmt.Errorf("output must be %s or %s, got %q", mathcat.OutputSpeech, mathcat.OutputBraille, output)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertOutputMatches:
		if a.Pattern == "" {
			return fmt.Errorf("assertions[%d]: pattern is required for output_matches", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
