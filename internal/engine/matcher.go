package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/mathml"
	"github.com/nlbdev/MathCAT/internal/prefs"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// render renders one node: stage 1 tries the intent rules for the node's
// intent, stage 2 the shape rules for its tag.
func (r *render) render(n *mathml.Node) error {
	if n.Intent != nil {
		rule, err := r.matchIntent(n)
		if err != nil {
			return err
		}
		if rule != nil {
			return r.apply(rule, n, n.Intent)
		}
	}
	rule, err := r.matchShape(n)
	if err != nil {
		return err
	}
	return r.apply(rule, n, nil)
}

// matchIntent returns the first satisfied intent rule for n, or nil when
// rendering falls through to the shape rules.
func (r *render) matchIntent(n *mathml.Node) (*rules.Rule, error) {
	return r.matchIntentAt(n.Intent.Name, n)
}

// matchIntentAt returns the first intent rule for name satisfied at n.
func (r *render) matchIntentAt(name string, n *mathml.Node) (*rules.Rule, error) {
	candidates := r.rules.RulesForIntent(name)
	if len(candidates) == 0 {
		if r.prefs.Is(prefs.IntentErrorRecovery, prefs.RecoveryError) {
			return nil, r.errorf(ErrCodeUnknownIntent, n, "", fmt.Sprintf("no rule for intent %q", name))
		}
		r.logger.Debug("intent has no rules, falling back to tag rules",
			"intent", name,
			"node", n.Path(),
		)
		return nil, nil
	}
	for _, rule := range candidates {
		if r.satisfied(rule, n) {
			return rule, nil
		}
	}
	return nil, nil
}

// matchShape returns the most specific satisfied rule for n's tag.
func (r *render) matchShape(n *mathml.Node) (*rules.Rule, error) {
	candidates := r.rules.RulesForTag(n.Tag)
	for i, rule := range candidates {
		if !r.satisfied(rule, n) {
			continue
		}
		if err := r.checkAmbiguous(rule, candidates[i+1:], n); err != nil {
			return nil, err
		}
		return rule, nil
	}
	return nil, r.errorf(ErrCodeNoApplicableRule, n, "", fmt.Sprintf("no rule for <%s>", n.Tag))
}

// checkAmbiguous fails when a rule following the winner in rest has the
// same specificity and is also satisfied at n.
func (r *render) checkAmbiguous(winner *rules.Rule, rest []*rules.Rule, n *mathml.Node) error {
	for _, other := range rest {
		if !winner.SameSpecificity(other) {
			return nil
		}
		if r.satisfied(other, n) {
			return r.errorf(ErrCodeAmbiguousRule, n, winner.Name,
				fmt.Sprintf("rules %q and %q both match with equal specificity", winner.Name, other.Name))
		}
	}
	return nil
}

// matchRun returns the run rule that matches nodes starting at i.
func (r *render) matchRun(nodes []*mathml.Node, i int) (*rules.Rule, error) {
	runs := r.rules.Runs()
	for k, rule := range runs {
		if !r.runFits(rule, nodes, i) {
			continue
		}
		var rest []*rules.Rule
		for _, other := range runs[k+1:] {
			if r.runFits(other, nodes, i) {
				rest = append(rest, other)
			}
		}
		if err := r.checkAmbiguous(rule, rest, nodes[i]); err != nil {
			return nil, err
		}
		return rule, nil
	}
	return nil, nil
}

// runFits reports whether rule's elements and position match at i and its
// conditions hold at nodes[i].
func (r *render) runFits(rule *rules.Rule, nodes []*mathml.Node, i int) bool {
	w := len(rule.Run)
	if i+w > len(nodes) {
		return false
	}
	switch rule.At {
	case rules.AtFirst:
		if i != 0 {
			return false
		}
	case rules.AtLast:
		if i+w != len(nodes) {
			return false
		}
	case rules.AtInterior:
		if i == 0 || i+w == len(nodes) {
			return false
		}
	}
	for k, el := range rule.Run {
		if !el.Matches(nodes[i+k]) {
			return false
		}
	}
	return r.satisfied(rule, nodes[i])
}

func (r *render) satisfied(rule *rules.Rule, n *mathml.Node) bool {
	for _, c := range rule.Conditions {
		if !r.condition(c, n) {
			return false
		}
	}
	return true
}

func (r *render) condition(c rules.Condition, n *mathml.Node) bool {
	target := n
	if c.Of != nil {
		sel := mathml.Select(c.Of, n)
		if len(sel) == 0 {
			return false
		}
		target = sel[0]
	}
	var ok bool
	switch c.Kind {
	case rules.CondText:
		ok = slices.Contains(c.Texts, target.TextContent())
	case rules.CondPref:
		ok = true
		for _, p := range c.Prefs {
			if !r.prefs.Is(p.Name, p.Values...) {
				ok = false
				break
			}
		}
	case rules.CondTest:
		ok = slices.Contains(c.Is, c.Classifier(target))
	case rules.CondXPath:
		ok = mathml.Test(c.XPath, target)
	case rules.CondIn:
		_, ok = r.rules.Lookup(c.Table, target.TextContent())
	}
	return ok != c.Negate
}

// apply runs rule's template with n as the context node. For intent rules,
// intent supplies the arguments that $parameters bind to by position.
func (r *render) apply(rule *rules.Rule, n *mathml.Node, intent *mathml.Intent) error {
	if !r.cycles.Enter(rule.Name, n) {
		return r.errorf(ErrCodeCycleDetected, n, rule.Name, "rule re-entered on the same node")
	}
	defer r.cycles.Leave(rule.Name, n)
	if !r.quota.Check() {
		return r.errorf(ErrCodeStepsExceeded, n, rule.Name,
			fmt.Sprintf("exceeded %d rule applications", r.quota.MaxSteps()))
	}

	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug("rule selected",
			"rule", rule.Name,
			"file", rule.File,
			"node", n.Path(),
			"rule_set", r.rules.ID(),
		)
	}
	if r.trace {
		r.steps = append(r.steps, Step{Rule: rule.Name, File: rule.File, Path: n.Path(), Depth: r.cycles.Depth()})
	}

	for _, item := range rule.Template {
		if err := r.item(rule, item, n, intent); err != nil {
			return err
		}
	}
	return nil
}

func (r *render) item(rule *rules.Rule, item rules.Item, ctx *mathml.Node, intent *mathml.Intent) error {
	switch item.Kind {
	case rules.ItemWord:
		r.emit(ir.Word(item.Value))
	case rules.ItemPause:
		r.emit(ir.ClausePause(item.Pause))
	case rules.ItemPunct:
		r.emit(ir.Punctuation(item.Value))
	case rules.ItemBraille:
		r.emit(ir.BrailleSymbol(item.Value))
	case rules.ItemSelect:
		return r.renderRow(mathml.Select(item.Select, ctx))
	case rules.ItemRef:
		return r.intentArg(rule, item, ctx, intent)
	case rules.ItemLookup:
		target, ok := itemTarget(item, ctx)
		if !ok {
			return nil
		}
		key := target.TextContent()
		if v, found := r.rules.Lookup(item.Value, key); found {
			key = v
		}
		r.emitText(key)
	case rules.ItemText:
		target, ok := itemTarget(item, ctx)
		if !ok {
			return nil
		}
		text := target.TextContent()
		if item.Value == rules.TextLower {
			text = r.lower.String(text)
		}
		r.emitText(text)
	case rules.ItemChars:
		target, ok := itemTarget(item, ctx)
		if !ok {
			return nil
		}
		r.chars(item.Value, target.TextContent())
	}
	return nil
}

// intentArg renders the intent argument bound to a $parameter. A $ref
// argument renders the node carrying that arg name, a literal is spoken as
// written and a nested intent renders through its own intent rules.
func (r *render) intentArg(rule *rules.Rule, item rules.Item, ctx *mathml.Node, intent *mathml.Intent) error {
	if intent == nil || item.Arg >= len(intent.Args) {
		return r.errorf(ErrCodeMissingArg, ctx, rule.Name,
			fmt.Sprintf("no argument %d for $%s", item.Arg+1, item.Value))
	}
	arg := intent.Args[item.Arg]
	switch {
	case arg.Ref != "":
		n := ctx.FindArg(arg.Ref)
		if n == nil {
			return r.errorf(ErrCodeMissingArg, ctx, rule.Name, fmt.Sprintf("no node with arg %q", arg.Ref))
		}
		return r.render(n)
	case arg.Nested != nil:
		nested, err := r.matchIntentAt(arg.Nested.Name, ctx)
		if err != nil {
			return err
		}
		if nested == nil {
			r.emitText(strings.ReplaceAll(arg.Nested.Name, "-", " "))
			return nil
		}
		return r.apply(nested, ctx, arg.Nested)
	default:
		r.emitText(arg.Literal)
	}
	return nil
}

// itemTarget resolves the node an item reads: the context node, or the
// first node selected by of.
func itemTarget(item rules.Item, ctx *mathml.Node) (*mathml.Node, bool) {
	if item.Of == nil {
		return ctx, true
	}
	sel := mathml.Select(item.Of, ctx)
	if len(sel) == 0 {
		return nil, false
	}
	return sel[0], true
}

// chars maps text rune by rune through table, using the "default" entry
// and then the rune itself for characters the table lacks.
func (r *render) chars(table, text string) {
	t, _ := r.rules.Table(table)
	braille := r.rules.Kind == rules.KindBraille
	var sb strings.Builder
	for _, c := range text {
		v, ok := t[string(c)]
		if !ok {
			v, ok = t["default"]
		}
		if !ok {
			v = string(c)
		}
		if braille {
			sb.WriteString(v)
		} else if v != "" {
			r.emit(ir.Word(v))
		}
	}
	if braille && sb.Len() > 0 {
		r.emit(ir.BrailleSymbol(sb.String()))
	}
}

// renderRow renders selected nodes in order. When there are several, run
// rules are tried at each index before the node itself is rendered.
func (r *render) renderRow(nodes []*mathml.Node) error {
	for i := 0; i < len(nodes); {
		if len(nodes) > 1 {
			rule, err := r.matchRun(nodes, i)
			if err != nil {
				return err
			}
			if rule != nil {
				if err := r.apply(rule, nodes[i], nil); err != nil {
					return err
				}
				i += len(rule.Run)
				continue
			}
		}
		if err := r.render(nodes[i]); err != nil {
			return err
		}
		i++
	}
	return nil
}
