package engine

import (
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/logging"
	"github.com/nlbdev/MathCAT/internal/mathml"
	"github.com/nlbdev/MathCAT/internal/prefs"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// DefaultMaxSteps is the default maximum number of rule applications per
// render. Canonical trees are bounded by MaxNodes, and every node is
// rendered by a handful of rules, so the limit is far above real input.
const DefaultMaxSteps = 100_000

// Engine renders canonical trees with one rule set and one preference
// snapshot.
//
// An Engine is immutable after New and may be shared; every Render call
// keeps its own cycle and quota state. Rules are evaluated in a fixed order
// (intent rules in declaration order, shape rules by descending
// specificity), so the same tree, rule set and snapshot always produce the
// same tokens.
type Engine struct {
	rules    *rules.RuleSet
	prefs    prefs.Snapshot
	logger   *slog.Logger
	lower    cases.Caser
	maxSteps int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for rule-selection debug records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxSteps sets the rule application quota per render.
// Use WithMaxSteps(0) to disable the quota.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// New creates an Engine for rs and the preference snapshot p.
func New(rs *rules.RuleSet, p prefs.Snapshot, opts ...Option) *Engine {
	tag := language.Und
	if rs.Kind == rules.KindSpeech {
		tag = language.Make(rs.Locale)
	}
	e := &Engine{
		rules:    rs,
		prefs:    p,
		logger:   logging.NewNop(),
		lower:    cases.Lower(tag),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RuleSet returns the rule set the engine renders with.
func (e *Engine) RuleSet() *rules.RuleSet { return e.rules }

// Step records one rule application.
type Step struct {
	Rule  string // rule name
	File  string // rule file the rule was declared in
	Path  string // node the template was applied to
	Depth int    // nesting depth of the application
}

// Render walks root and returns the token stream.
func (e *Engine) Render(root *mathml.Node) ([]ir.Token, error) {
	r := e.newRender(false)
	if err := r.render(root); err != nil {
		return nil, err
	}
	return r.tokens, nil
}

// Trace is Render that also returns every rule application in the order
// the rules were applied.
func (e *Engine) Trace(root *mathml.Node) ([]ir.Token, []Step, error) {
	r := e.newRender(true)
	if err := r.render(root); err != nil {
		return nil, r.steps, err
	}
	return r.tokens, r.steps, nil
}

// render holds the state of one Render call.
type render struct {
	*Engine
	cycles *CycleDetector
	quota  *QuotaEnforcer
	tokens []ir.Token
	trace  bool
	steps  []Step
}

func (e *Engine) newRender(trace bool) *render {
	return &render{
		Engine: e,
		cycles: NewCycleDetector(),
		quota:  NewQuotaEnforcer(e.maxSteps),
		trace:  trace,
	}
}

func (r *render) emit(t ir.Token) { r.tokens = append(r.tokens, t) }

// emitText emits s as a word in speech and as cells in braille.
func (r *render) emitText(s string) {
	if s == "" {
		return
	}
	if r.rules.Kind == rules.KindBraille {
		r.emit(ir.BrailleSymbol(s))
		return
	}
	r.emit(ir.Word(s))
}

func (r *render) errorf(code RuntimeErrorCode, n *mathml.Node, rule, msg string) error {
	re := &RuntimeError{Code: code, Message: msg, Rule: rule, RuleSet: r.rules.ID()}
	if n != nil {
		re.Path = n.Path()
	}
	return re
}
