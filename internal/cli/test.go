package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	GoldenDir string // empty disables golden comparison
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run rule conformance scenarios",
		Long: `Run every scenario file below a directory.

Each scenario renders its cases against a rule directory and checks the
output, the error code and assertions on the rule trace. With
--golden-dir every scenario's trace snapshot is compared with a golden
file; --update rewrites the golden files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  mathcat test ./scenarios
  mathcat test ./scenarios --golden-dir ./testdata/golden
  mathcat test ./scenarios --golden-dir ./testdata/golden --update
  mathcat test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "compare trace snapshots with golden files in this directory")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
		return &ExitError{Code: ExitCommandError, Message: "scenarios directory not found: " + dir, Reported: true}
	}
	if opts.Update && opts.GoldenDir == "" {
		return formatter.Fail(ExitCommandError, argErrorf("--update needs --golden-dir"))
	}

	paths, err := harness.FindScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	if len(paths) == 0 {
		return formatter.Success(&harness.SuiteResult{}, "No scenarios found.\n")
	}

	result, err := harness.RunDir(cmd.Context(), dir, harness.SuiteOptions{
		GoldenDir: opts.GoldenDir,
		Update:    opts.Update,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Pass() {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeTestFailed,
				Message: fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.TotalScenarios),
			}
		}
		if err := jsonIndent(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, paths, result)
	}

	if !result.Pass() {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d scenario(s) failed", result.Failed),
			Reported: true,
		}
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, paths []string, result *harness.SuiteResult) {
	w := formatter.Writer

	failed := make(map[string]harness.ScenarioFailure, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.ScenarioPath] = f
	}
	for _, p := range paths {
		f, bad := failed[p]
		if !bad {
			fmt.Fprintf(w, "✓ %s\n", filepath.Base(p))
			continue
		}
		name := filepath.Base(p)
		if f.Scenario != "" {
			name = f.Scenario
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range f.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results: %d passed, %d failed, %d total (%d cases)\n",
		result.Passed, result.Failed, result.TotalScenarios, result.TotalCases)
}
