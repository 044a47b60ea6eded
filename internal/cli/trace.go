package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Output  string // "speech" | "braille"
	NavHint string
	Prefs   []string
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Canonical string              `json:"canonical"`
	Output    string              `json:"output"`
	Error     *CLIError           `json:"error,omitempty"`
	Steps     []mathcat.TraceStep `json:"steps"`
	Stats     TraceStats          `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Steps    int `json:"steps"`
	Rules    int `json:"rules"` // distinct rules applied
	MaxDepth int `json:"max_depth"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [file]",
		Short: "Show the rules applied while rendering",
		Long: `Render an expression and list every rule application in order.

Each step shows the rule, the file that defines it and the path of the
node it was applied to. A failed render still lists the steps taken
before the failure.

Examples:
  mathcat trace expr.xml
  mathcat trace --pref Language=nb expr.xml
  mathcat trace --output braille --nav-hint M3 expr.xml
  mathcat trace --format json expr.xml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", mathcat.OutputSpeech, "output kind (speech|braille)")
	cmd.Flags().StringVar(&opts.NavHint, "nav-hint", "", "node id to focus (braille only)")
	cmd.Flags().StringArrayVar(&opts.Prefs, "pref", nil, "preference name=value (repeatable)")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	markup, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	values, err := parsePrefFlags(opts.Prefs)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	repo, err := loadRepository(opts.RootOptions, logger)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	session, err := mathcat.NewSession(mathcat.WithRepository(repo), mathcat.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	if err := session.SetPreferences(values); err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	canonical, err := session.SetMathML(markup)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	output, steps, renderErr := session.Trace(opts.Output, opts.NavHint)
	result := TraceResult{
		Canonical: canonical,
		Output:    output,
		Steps:     steps,
		Stats:     traceStats(steps),
	}
	if result.Steps == nil {
		result.Steps = []mathcat.TraceStep{}
	}
	if renderErr != nil {
		result.Error = &CLIError{Code: ErrorCode(renderErr), Message: renderErr.Error()}
	}

	if opts.Format == "json" {
		if err := outputTraceJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	}
	if renderErr != nil {
		return &ExitError{Code: ExitFailure, Message: renderErr.Error(), Err: renderErr, Reported: true}
	}
	return nil
}

func traceStats(steps []mathcat.TraceStep) TraceStats {
	stats := TraceStats{Steps: len(steps)}
	seen := make(map[string]bool)
	for _, s := range steps {
		key := s.File + "#" + s.Rule
		if !seen[key] {
			seen[key] = true
			stats.Rules++
		}
		if s.Depth > stats.MaxDepth {
			stats.MaxDepth = s.Depth
		}
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Error != nil {
		response.Status = "error"
		response.Error = result.Error
	}

	return jsonIndent(cmd.OutOrStdout(), response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if verbose {
		fmt.Fprintf(w, "Canonical: %s\n\n", result.Canonical)
	}

	fmt.Fprintln(w, "=== Steps ===")
	if len(result.Steps) == 0 {
		fmt.Fprintln(w, "  (no rules applied)")
	}
	for i, step := range result.Steps {
		formatStep(w, i, step)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Result ===")
	if result.Error != nil {
		fmt.Fprintf(w, "  ✗ %s: %s\n", result.Error.Code, result.Error.Message)
	} else {
		fmt.Fprintf(w, "  %s\n", result.Output)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Steps:     %d\n", result.Stats.Steps)
	fmt.Fprintf(w, "  Rules:     %d\n", result.Stats.Rules)
	fmt.Fprintf(w, "  Max Depth: %d\n", result.Stats.MaxDepth)
}

// formatStep writes one step, indented by its depth.
func formatStep(w io.Writer, i int, step mathcat.TraceStep) {
	indent := strings.Repeat("  ", max(step.Depth-1, 0))
	fmt.Fprintf(w, "  [%d] %s%s at %s (%s)\n", i, indent, step.Rule, step.Path, step.File)
}
