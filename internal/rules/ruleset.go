package rules

import (
	"maps"
	"slices"

	"github.com/antchfx/xpath"

	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/mathml"
)

// Shape says what a rule is matched against.
type Shape int

const (
	ShapeTag    Shape = iota // a node with a given tag
	ShapeIntent              // a node whose intent has a given name
	ShapeRun                 // a sequence of siblings
)

// Run positions relative to the row being folded.
const (
	AtAny      = "any"
	AtFirst    = "first"
	AtLast     = "last"
	AtInterior = "interior"
)

// Rule is a compiled rule.
type Rule struct {
	Name       string
	File       string
	Shape      Shape
	Tag        mathml.Tag
	Intent     string
	Params     []string
	Run        []RunElement
	At         string
	Priority   int
	Conditions []Condition
	Template   []Item

	order int
}

// Specificity orders rules: higher priority first, then more conditions.
func (r *Rule) Specificity() (priority, conditions int) {
	return r.Priority, len(r.Conditions)
}

// SameSpecificity reports whether neither rule outranks the other.
func (r *Rule) SameSpecificity(o *Rule) bool {
	return r.Priority == o.Priority && len(r.Conditions) == len(o.Conditions)
}

// compareRules sorts by descending specificity, then declaration order.
func compareRules(a, b *Rule) int {
	if a.Priority != b.Priority {
		return b.Priority - a.Priority
	}
	if len(a.Conditions) != len(b.Conditions) {
		return len(b.Conditions) - len(a.Conditions)
	}
	return a.order - b.order
}

// RunElement matches one sibling of a run.
type RunElement struct {
	Tag   mathml.Tag
	Texts []string
}

// Matches reports whether n fits the element.
func (e RunElement) Matches(n *mathml.Node) bool {
	if n.Tag != e.Tag {
		return false
	}
	return len(e.Texts) == 0 || slices.Contains(e.Texts, n.TextContent())
}

// ConditionKind is the test a condition performs.
type ConditionKind int

const (
	CondText ConditionKind = iota
	CondPref
	CondTest
	CondXPath
	CondIn
)

// PrefTest holds when the named preference has one of Values.
type PrefTest struct {
	Name   string
	Values []string
}

// Condition is a compiled predicate. Of, when set, moves the test to the
// first node it selects; the condition fails when nothing is selected.
type Condition struct {
	Kind       ConditionKind
	Texts      []string
	Prefs      []PrefTest
	Test       string
	Classifier mathml.Classifier
	Is         []string
	XPath      *xpath.Expr
	Table      string
	Of         *xpath.Expr
	Negate     bool

	key string
}

// ItemKind is the action of a template item.
type ItemKind int

const (
	ItemWord ItemKind = iota
	ItemPause
	ItemPunct
	ItemBraille
	ItemSelect
	ItemRef
	ItemLookup
	ItemText
	ItemChars
)

// Text modes.
const (
	TextAsIs  = "as-is"
	TextLower = "lower"
)

// Item is one compiled template item. Value holds the word, punctuation
// kind, braille cells, parameter name, table name or text mode. Arg is the
// position of a parameter among the intent's arguments.
type Item struct {
	Kind   ItemKind
	Value  string
	Arg    int
	Pause  ir.Pause
	Select *xpath.Expr
	Of     *xpath.Expr
}

// Punct is how a punctuation kind renders in speech.
type Punct struct {
	Text  string
	Pause ir.Pause
}

// RuleSet is the compiled, merged content of one speech style or braille
// code. It is immutable.
type RuleSet struct {
	Kind   string
	Locale string
	Style  string
	Code   string
	Files  []string

	digest      string
	punctuation map[string]Punct
	tables      map[string]map[string]string
	rules       []*Rule
	byTag       map[mathml.Tag][]*Rule
	byIntent    map[string][]*Rule
	runs        []*Rule
}

// Name is "locale/style" for speech and the code for braille.
func (rs *RuleSet) Name() string {
	if rs.Kind == KindBraille {
		return rs.Code
	}
	return rs.Locale + "/" + rs.Style
}

// ID identifies the rule set and the exact content it was built from.
func (rs *RuleSet) ID() string {
	return rs.Kind + ":" + rs.Name() + "@" + rs.digest[:16]
}

// Rules returns every rule in declaration order.
func (rs *RuleSet) Rules() []*Rule { return rs.rules }

// RulesForTag returns the rules for tag by descending specificity.
func (rs *RuleSet) RulesForTag(tag mathml.Tag) []*Rule { return rs.byTag[tag] }

// RulesForIntent returns the intent rules for name in declaration order.
func (rs *RuleSet) RulesForIntent(name string) []*Rule { return rs.byIntent[name] }

// Runs returns the run rules by descending specificity.
func (rs *RuleSet) Runs() []*Rule { return rs.runs }

// Table returns a definitions table.
func (rs *RuleSet) Table(name string) (map[string]string, bool) {
	t, ok := rs.tables[name]
	return t, ok
}

// Lookup returns table[key].
func (rs *RuleSet) Lookup(table, key string) (string, bool) {
	v, ok := rs.tables[table][key]
	return v, ok
}

// Punctuation returns how kind is spoken.
func (rs *RuleSet) Punctuation(kind string) (Punct, bool) {
	p, ok := rs.punctuation[kind]
	return p, ok
}

// PunctuationTable returns a copy of the punctuation entries.
func (rs *RuleSet) PunctuationTable() map[string]Punct {
	return maps.Clone(rs.punctuation)
}
