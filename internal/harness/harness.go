package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nlbdev/MathCAT"
	"github.com/nlbdev/MathCAT/internal/logging"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// SessionID is the fixed session ID of every case.
const SessionID = "harness"

// Harness runs the cases of a scenario against one repository.
type Harness struct {
	repo   *rules.Repository
	logger *slog.Logger
}

// New creates a harness over repo. A nil logger discards output.
func New(repo *rules.Repository, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Harness{repo: repo, logger: logger}
}

// Run executes a test scenario and returns the result. The rules come
// from scenario.RulesDir, or the embedded rules when it is empty.
//
// An error is returned only when the rules cannot be loaded; failed cases
// are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	repo, err := loadRules(scenario.RulesDir)
	if err != nil {
		return nil, err
	}
	return New(repo, nil).Run(context.Background(), scenario), nil
}

func loadRules(dir string) (*rules.Repository, error) {
	if dir == "" {
		return rules.Default()
	}
	repo, err := rules.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", dir, err)
	}
	return repo, nil
}

// Run executes every case of scenario in a fresh session.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) *Result {
	result := NewResult()
	for _, c := range scenario.Cases {
		cr := h.runCase(scenario, c)
		result.Cases = append(result.Cases, cr)

		for _, msg := range checkCase(c, cr) {
			result.AddError(fmt.Sprintf("case %q: %s", c.Name, msg))
		}
		h.logger.DebugContext(ctx, "case completed",
			"scenario", scenario.Name,
			"case", c.Name,
			"output", cr.Output,
			"error", cr.Error,
			"steps", len(cr.Trace),
		)
	}
	return result
}

func (h *Harness) runCase(scenario *Scenario, c Case) CaseResult {
	cr := CaseResult{Name: c.Name, Trace: []mathcat.TraceStep{}}
	fail := func(err error) CaseResult {
		cr.Error = mathcat.Code(err)
		if cr.Error == "" {
			cr.Error = err.Error()
		}
		return cr
	}

	session, err := mathcat.NewSession(
		mathcat.WithRepository(h.repo),
		mathcat.WithLogger(h.logger),
		mathcat.WithIDGenerator(mathcat.NewFixedGenerator(SessionID)),
	)
	if err != nil {
		return fail(err)
	}
	if err := session.SetPreferences(scenario.preferences(c)); err != nil {
		return fail(err)
	}
	if _, err := session.SetMathML(c.MathML); err != nil {
		return fail(err)
	}

	out, trace, err := session.Trace(scenario.output(c), c.NavHint)
	if trace != nil {
		cr.Trace = trace
	}
	if err != nil {
		return fail(err)
	}
	cr.Output = out
	return cr
}

// checkCase compares a case result with the case expectations.
func checkCase(c Case, cr CaseResult) []string {
	switch {
	case c.Error != "":
		if cr.Error != c.Error {
			return []string{fmt.Sprintf("expected error %s, got %q (output %q)", c.Error, cr.Error, cr.Output)}
		}
		return nil
	case cr.Error != "":
		return []string{fmt.Sprintf("unexpected error %s", cr.Error)}
	case c.Expect != "" && cr.Output != c.Expect:
		return []string{fmt.Sprintf("expected output %q, got %q", c.Expect, cr.Output)}
	}
	return EvaluateAssertions(cr, c.Assertions)
}
