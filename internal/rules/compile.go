package rules

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/antchfx/xpath"
	"golang.org/x/text/language"

	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/mathml"
	"github.com/nlbdev/MathCAT/internal/prefs"
)

// source is one decoded rule file.
type source struct {
	path string
	raw  []byte
	file *File
}

// compileRuleSet merges root with the files it includes (given in chain,
// includes first) and compiles the result. All problems are returned;
// the rule set is nil when any of them is an error.
func compileRuleSet(root *source, chain []*source) (*RuleSet, []ValidationError) {
	var problems []ValidationError
	f := root.file

	rs := &RuleSet{
		Kind:        f.Kind,
		Code:        f.Code,
		Style:       f.Style,
		punctuation: map[string]Punct{},
		tables:      map[string]map[string]string{},
		byTag:       map[mathml.Tag][]*Rule{},
		byIntent:    map[string][]*Rule{},
	}

	// E217: header fields
	switch f.Kind {
	case KindSpeech:
		if f.Locale == "" || f.Style == "" {
			problems = append(problems, ValidationError{File: root.path, Field: "locale", Message: "speech rule files need locale and style", Code: ErrMissingHeader})
		} else if tag, err := language.Raw.Parse(f.Locale); err != nil {
			problems = append(problems, ValidationError{File: root.path, Field: "locale", Message: fmt.Sprintf("invalid locale %q: %v", f.Locale, err), Code: ErrMissingHeader})
		} else {
			rs.Locale = tag.String()
		}
	case KindBraille:
		if f.Code == "" {
			problems = append(problems, ValidationError{File: root.path, Field: "code", Message: "braille rule files need a code", Code: ErrMissingHeader})
		}
	}

	raws := make([][]byte, 0, len(chain))
	for _, src := range chain {
		rs.Files = append(rs.Files, src.path)
		raws = append(raws, src.raw)
		for name, table := range src.file.Definitions {
			if rs.tables[name] == nil {
				rs.tables[name] = map[string]string{}
			}
			maps.Copy(rs.tables[name], table)
		}
		for kind, p := range src.file.Punctuation {
			pause, _ := ir.ParsePause(p.Pause)
			rs.punctuation[kind] = Punct{Text: p.Text, Pause: pause}
		}
	}
	rs.digest = ir.RulesDigest(raws...)

	names := map[string]string{}
	for _, src := range chain {
		for i, spec := range src.file.Rules {
			field := fmt.Sprintf("rules[%d]", i)
			if spec.Name != "" {
				field = fmt.Sprintf("rules[%d](%s)", i, spec.Name)
			}
			c := &ruleCompiler{rs: rs, file: src.path, field: field}
			rule := c.compile(spec)
			problems = append(problems, c.errs...)

			// E208: duplicate rule name
			if prev, dup := names[spec.Name]; dup {
				problems = append(problems, ValidationError{
					File: src.path, Field: field,
					Message: fmt.Sprintf("duplicate rule name %q (first defined in %s)", spec.Name, prev),
					Code:    ErrDuplicateRule,
				})
			}
			names[spec.Name] = src.path

			if rule == nil {
				continue
			}
			rule.order = len(rs.rules)
			rs.rules = append(rs.rules, rule)
		}
	}

	for _, r := range rs.rules {
		switch r.Shape {
		case ShapeTag:
			rs.byTag[r.Tag] = append(rs.byTag[r.Tag], r)
		case ShapeIntent:
			rs.byIntent[r.Intent] = append(rs.byIntent[r.Intent], r)
		case ShapeRun:
			rs.runs = append(rs.runs, r)
		}
	}
	for _, list := range rs.byTag {
		slices.SortStableFunc(list, compareRules)
	}
	slices.SortStableFunc(rs.runs, compareRules)

	problems = append(problems, specificityConflicts(rs)...)
	problems = append(problems, missingCatchAlls(rs, root.path)...)

	if hasErrors(problems) {
		return nil, problems
	}
	return rs, problems
}

func hasErrors(problems []ValidationError) bool {
	return slices.ContainsFunc(problems, func(p ValidationError) bool { return !p.IsWarning() })
}

// specificityConflicts finds rules of one shape whose specificity and
// conditions are identical, so the later one can never be selected.
func specificityConflicts(rs *RuleSet) []ValidationError {
	var errs []ValidationError
	groups := map[string][]*Rule{}
	var order []string
	for _, r := range rs.rules {
		k := shapeKey(r)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	for _, k := range order {
		list := groups[k]
		for i := range list {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if !a.SameSpecificity(b) || !sameConditions(a, b) {
					continue
				}
				errs = append(errs, ValidationError{
					File:    b.File,
					Field:   b.Name,
					Message: fmt.Sprintf("rule %q has the same shape, specificity and conditions as %q", b.Name, a.Name),
					Code:    ErrSpecificity,
				})
			}
		}
	}
	return errs
}

func shapeKey(r *Rule) string {
	switch r.Shape {
	case ShapeTag:
		return "tag:" + string(r.Tag)
	case ShapeIntent:
		return "intent:" + r.Intent
	default:
		parts := make([]string, len(r.Run))
		for i, e := range r.Run {
			parts[i] = string(e.Tag) + "=" + strings.Join(e.Texts, "|")
		}
		return "run:" + r.At + ":" + strings.Join(parts, ",")
	}
}

func sameConditions(a, b *Rule) bool {
	ka := make([]string, len(a.Conditions))
	kb := make([]string, len(b.Conditions))
	for i := range a.Conditions {
		ka[i] = a.Conditions[i].key
		kb[i] = b.Conditions[i].key
	}
	slices.Sort(ka)
	slices.Sort(kb)
	return slices.Equal(ka, kb)
}

// missingCatchAlls warns about tags whose rules all carry conditions.
func missingCatchAlls(rs *RuleSet, file string) []ValidationError {
	var warns []ValidationError
	tags := slices.Sorted(maps.Keys(rs.byTag))
	for _, tag := range tags {
		if slices.ContainsFunc(rs.byTag[tag], func(r *Rule) bool { return len(r.Conditions) == 0 }) {
			continue
		}
		warns = append(warns, ValidationError{
			File:    file,
			Field:   string(tag),
			Message: fmt.Sprintf("no catch-all rule for <%s>", tag),
			Code:    WarnNoCatchAll,
		})
	}
	return warns
}

type ruleCompiler struct {
	rs    *RuleSet
	file  string
	field string
	errs  []ValidationError
}

func (c *ruleCompiler) errorf(field, code, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		File:    c.file,
		Field:   c.field + field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (c *ruleCompiler) compile(spec RuleSpec) *Rule {
	r := &Rule{Name: spec.Name, File: c.file, Priority: spec.Priority, At: spec.At}

	// E202: exactly one shape
	shapes := 0
	if spec.Tag != "" {
		shapes++
		r.Shape = ShapeTag
		r.Tag = mathml.Tag(spec.Tag)
		if !mathml.IsValidTag(r.Tag) {
			c.errorf(".tag", ErrUnknownTag, "unknown tag %q", spec.Tag)
		}
	}
	if spec.Intent != "" {
		shapes++
		r.Shape = ShapeIntent
		r.Intent = spec.Intent
	}
	if len(spec.Params) > 0 {
		if r.Shape != ShapeIntent {
			c.errorf(".params", ErrMisplacedRef, "params are only valid on intent rules")
		}
		for i, p := range spec.Params {
			if slices.Contains(spec.Params[:i], p) {
				c.errorf(fmt.Sprintf(".params[%d]", i), ErrUnknownParam, "duplicate parameter %q", p)
			}
		}
		r.Params = spec.Params
	}
	if len(spec.Run) > 0 {
		shapes++
		r.Shape = ShapeRun
		for i, e := range spec.Run {
			tag := mathml.Tag(e.Tag)
			if !mathml.IsValidTag(tag) {
				c.errorf(fmt.Sprintf(".run[%d].tag", i), ErrUnknownTag, "unknown tag %q", e.Tag)
			}
			r.Run = append(r.Run, RunElement{Tag: tag, Texts: e.Text})
		}
	}
	if shapes != 1 {
		c.errorf("", ErrBadShape, "rule needs exactly one of tag, intent or run, has %d", shapes)
	}

	// E213: at applies to runs only
	if r.Shape == ShapeRun {
		if r.At == "" {
			r.At = AtAny
		}
	} else if spec.At != "" {
		c.errorf(".at", ErrMisplacedAt, "at is only valid on run rules")
	}

	for i, cs := range spec.When {
		if cond, ok := c.condition(fmt.Sprintf(".when[%d]", i), cs); ok {
			r.Conditions = append(r.Conditions, cond)
		}
	}
	if spec.Then == nil {
		c.errorf(".then", ErrSchema, "then is required; use [] for a rule that renders nothing")
	}
	for i, is := range spec.Then {
		if item, ok := c.item(fmt.Sprintf(".then[%d]", i), is, r); ok {
			r.Template = append(r.Template, item)
		}
	}

	if len(c.errs) > 0 {
		return nil
	}
	return r
}

func (c *ruleCompiler) xpath(field, expr string) *xpath.Expr {
	e, err := xpath.Compile(expr)
	if err != nil {
		c.errorf(field, ErrInvalidXPath, "invalid XPath %q: %v", expr, err)
		return nil
	}
	return e
}

func (c *ruleCompiler) table(field, name string) {
	if _, ok := c.rs.tables[name]; !ok {
		c.errorf(field, ErrUnknownTable, "unknown table %q", name)
	}
}

func (c *ruleCompiler) condition(field string, spec ConditionSpec) (Condition, bool) {
	before := len(c.errs)
	cond := Condition{Negate: spec.Not}

	// E205: exactly one test kind
	kinds := 0
	if len(spec.Text) > 0 {
		kinds++
		cond.Kind = CondText
		cond.Texts = spec.Text
	}
	if len(spec.Pref) > 0 {
		kinds++
		cond.Kind = CondPref
		for _, name := range slices.Sorted(maps.Keys(spec.Pref)) {
			if _, ok := prefs.Lookup(name); !ok {
				c.errorf(field+".pref", ErrUnknownPreference, "unknown preference %q", name)
			}
			cond.Prefs = append(cond.Prefs, PrefTest{Name: name, Values: spec.Pref[name]})
		}
	}
	if spec.Test != "" {
		kinds++
		cond.Kind = CondTest
		cond.Test = spec.Test
		classifier, ok := mathml.LookupClassifier(spec.Test)
		if !ok {
			c.errorf(field+".test", ErrUnknownClassifier, "unknown classifier %q (known: %s)", spec.Test, strings.Join(mathml.ClassifierNames(), ", "))
		}
		cond.Classifier = classifier
		cond.Is = spec.Is
		if len(cond.Is) == 0 {
			cond.Is = []string{"true"}
		}
	}
	if spec.XPath != "" {
		kinds++
		cond.Kind = CondXPath
		cond.XPath = c.xpath(field+".xpath", spec.XPath)
	}
	if spec.In != "" {
		kinds++
		cond.Kind = CondIn
		cond.Table = spec.In
		c.table(field+".in", spec.In)
	}
	if kinds != 1 {
		c.errorf(field, ErrConditionKind, "condition needs exactly one of text, pref, test, xpath or in, has %d", kinds)
	}
	if len(spec.Is) > 0 && spec.Test == "" {
		c.errorf(field+".is", ErrConditionKind, "is only applies to test conditions")
	}
	if spec.Of != "" {
		cond.Of = c.xpath(field+".of", spec.Of)
	}

	key, _ := json.Marshal(spec)
	cond.key = string(key)
	return cond, len(c.errs) == before
}

func (c *ruleCompiler) item(field string, spec ItemSpec, r *Rule) (Item, bool) {
	before := len(c.errs)
	var item Item

	// E206: exactly one action
	actions := 0
	if spec.Word != "" {
		actions++
		item = Item{Kind: ItemWord, Value: spec.Word}
	}
	if spec.Pause != "" {
		actions++
		p, err := ir.ParsePause(spec.Pause)
		if err != nil {
			c.errorf(field+".pause", ErrItemAction, "%v", err)
		}
		item = Item{Kind: ItemPause, Pause: p}
	}
	if spec.Punct != "" {
		actions++
		item = Item{Kind: ItemPunct, Value: spec.Punct}
		if _, ok := c.rs.punctuation[spec.Punct]; !ok {
			c.errorf(field+".punct", ErrUnknownPunctuation, "unknown punctuation kind %q", spec.Punct)
		}
	}
	if spec.Braille != "" {
		actions++
		item = Item{Kind: ItemBraille, Value: spec.Braille}
	}
	if spec.X != "" {
		actions++
		if ref, ok := strings.CutPrefix(spec.X, "$"); ok {
			item = Item{Kind: ItemRef, Value: ref, Arg: paramIndex(r.Params, ref)}
			switch {
			case r.Shape != ShapeIntent:
				c.errorf(field+".x", ErrMisplacedRef, "$%s is only valid in intent rules", ref)
			case item.Arg < 0:
				c.errorf(field+".x", ErrUnknownParam, "$%s is not a parameter of intent %q (params: %s)", ref, r.Intent, strings.Join(r.Params, ", "))
			}
		} else {
			item = Item{Kind: ItemSelect, Select: c.xpath(field+".x", spec.X)}
		}
	}
	if spec.Lookup != "" {
		actions++
		item = Item{Kind: ItemLookup, Value: spec.Lookup}
		c.table(field+".lookup", spec.Lookup)
	}
	if spec.Text != "" {
		actions++
		item = Item{Kind: ItemText, Value: spec.Text}
		if spec.Text != TextAsIs && spec.Text != TextLower {
			c.errorf(field+".text", ErrItemAction, "text must be %q or %q", TextAsIs, TextLower)
		}
	}
	if spec.Chars != "" {
		actions++
		item = Item{Kind: ItemChars, Value: spec.Chars}
		c.table(field+".chars", spec.Chars)
	}
	if actions != 1 {
		c.errorf(field, ErrItemAction, "item needs exactly one action, has %d", actions)
	}

	if spec.Of != "" {
		switch item.Kind {
		case ItemLookup, ItemText, ItemChars:
			item.Of = c.xpath(field+".of", spec.Of)
		default:
			c.errorf(field+".of", ErrItemAction, "of only qualifies lookup, text and chars")
		}
	}
	return item, len(c.errs) == before
}

// paramIndex resolves a template reference to an argument position: a
// declared parameter name, or $1, $2, ... counted from one. It returns -1
// when ref is neither.
func paramIndex(params []string, ref string) int {
	if i := slices.Index(params, ref); i >= 0 {
		return i
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 {
		return n - 1
	}
	return -1
}
