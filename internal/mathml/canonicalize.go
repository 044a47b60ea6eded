package mathml

import (
	"fmt"
	"log/slog"
	"strings"
)

// functionNames are identifiers read as functions when followed by an
// operand, so "sin x" becomes sin U+2061 x.
var functionNames = map[string]bool{}

func init() {
	for _, f := range strings.Fields(`
		sin cos tan sec csc cot
		sinh cosh tanh sech csch coth
		arcsin arccos arctan arcsec arccsc arccot
		arsinh arcosh artanh
		log ln lg exp
		det dim ker deg gcd lcm max min sup inf arg sgn Pr`) {
		functionNames[f] = true
	}
}

// IsFunctionName reports whether s is a known function name.
func IsFunctionName(s string) bool { return functionNames[s] }

var fencePairs = map[string]string{
	"(": ")",
	"[": "]",
	"{": "}",
	"⟨": "⟩",
}

func isOpenFence(n *Node) bool {
	if n.Tag != TagOperator {
		return false
	}
	_, ok := fencePairs[n.Text]
	return ok
}

func closes(open, close *Node) bool {
	return close.Tag == TagOperator && fencePairs[open.Text] == close.Text
}

// canonicalize rewrites a freshly built tree in place.
func canonicalize(root *Node, logger *slog.Logger) error {
	inferRows(root)
	for i, c := range root.Children {
		root.Children[i] = collapse(c)
	}
	groupFences(root)
	insertInvisibleOperators(root)
	root.Relink()

	if err := resolveIntents(root); err != nil {
		return err
	}
	assignIDs(root)
	logger.Debug("canonicalized expression", "nodes", root.Count())
	return nil
}

// inferRows gives single-child elements (msqrt, mstyle, ...) exactly one
// child by wrapping their content in an mrow.
func inferRows(n *Node) {
	for _, c := range n.Children {
		inferRows(c)
	}
	if tagInfo[n.Tag].kind == kindInferred && len(n.Children) != 1 {
		n.Children = []*Node{newRow(n.Children...)}
	}
}

// collapse removes redundant single-child grouping (mrow, mstyle, mpadded).
// A wrapper carrying an intent is kept, and so is one whose arg or id
// would clash with the child's.
func collapse(n *Node) *Node {
	for i, c := range n.Children {
		n.Children[i] = collapse(c)
	}
	switch n.Tag {
	case TagRow, TagStyle, TagPadded:
	default:
		return n
	}
	if len(n.Children) != 1 {
		return n
	}
	child := n.Children[0]
	if _, ok := n.Attr("intent"); ok {
		return n
	}
	arg, hasArg := n.Attr("arg")
	if hasArg {
		if _, clash := child.Attr("arg"); clash {
			return n
		}
	}
	if n.ID != "" && child.ID != "" {
		return n
	}
	if hasArg {
		child.SetAttr("arg", arg)
	}
	if child.ID == "" {
		child.ID = n.ID
	}
	return child
}

func isRow(n *Node) bool { return n.Tag == TagRow || n.Tag == TagMath }

// groupFences turns matching fence pairs inside rows into
// mrow(open, content, close) groups, innermost first. A pair spanning a
// whole mrow reuses that mrow.
func groupFences(n *Node) {
	for _, c := range n.Children {
		groupFences(c)
	}
	if !isRow(n) {
		return
	}

	var out []*Node
	var stack []int
	for _, c := range n.Children {
		if isOpenFence(c) {
			stack = append(stack, len(out))
			out = append(out, c)
			continue
		}
		if len(stack) > 0 && closes(out[stack[len(stack)-1]], c) {
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			inner := append([]*Node(nil), out[start+1:]...)
			group := fenced(out[start], inner, c)
			out = append(out[:start], group)
			continue
		}
		out = append(out, c)
	}

	if n.Tag == TagRow && len(out) == 1 && len(out[0].Children) == 3 && out[0] != n.Children[0] {
		n.Children = out[0].Children
		return
	}
	n.Children = out
}

func fenced(open *Node, inner []*Node, close *Node) *Node {
	var content *Node
	if len(inner) == 1 {
		content = inner[0]
	} else {
		content = newRow(inner...)
	}
	return newRow(open, content, close)
}

// operatorLike reports whether n is an operator or an embellished one
// (a script whose base is an operator).
func operatorLike(n *Node) bool {
	switch n.Tag {
	case TagOperator:
		return true
	case TagSup, TagSub, TagSubSup, TagUnder, TagOver, TagUnderOver:
		return operatorLike(n.Children[0])
	}
	return false
}

// functionLike reports whether prev applied to next is function
// application rather than multiplication.
func functionLike(prev, next *Node) bool {
	switch prev.Tag {
	case TagIdentifier:
		if IsFunctionName(prev.Text) {
			return true
		}
		switch prev.Text {
		case "f", "g", "h":
			return isParenGroup(next)
		}
	case TagSup, TagSub, TagSubSup:
		base := prev.Children[0]
		return base.Tag == TagIdentifier && IsFunctionName(base.Text)
	}
	return false
}

// insertInvisibleOperators makes juxtaposition explicit: U+2061 for
// function application, U+2062 for implied multiplication.
func insertInvisibleOperators(n *Node) {
	for _, c := range n.Children {
		insertInvisibleOperators(c)
	}
	if !isRow(n) || len(n.Children) < 2 {
		return
	}
	out := make([]*Node, 0, 2*len(n.Children))
	for i, c := range n.Children {
		if i > 0 {
			prev := n.Children[i-1]
			if needsInvisibleOperator(prev, c) {
				if functionLike(prev, c) {
					out = append(out, newOperator(FunctionApplication))
				} else {
					out = append(out, newOperator(InvisibleTimes))
				}
			}
		}
		out = append(out, c)
	}
	n.Children = out
}

func needsInvisibleOperator(prev, next *Node) bool {
	if operatorLike(prev) || operatorLike(next) {
		return false
	}
	for _, n := range []*Node{prev, next} {
		if n.Tag == TagText || n.Tag == TagString {
			return false
		}
	}
	return true
}

// resolveIntents parses every intent attribute and checks that each
// $reference names an arg inside the annotated subtree.
func resolveIntents(root *Node) error {
	var err error
	root.Walk(func(n *Node) bool {
		if err != nil {
			return false
		}
		value, ok := n.Attr("intent")
		if !ok {
			return true
		}
		intent, perr := ParseIntent(value)
		if perr != nil {
			err = &ParseError{Code: CodeMalformedMarkup, Path: n.Path(), Message: "bad intent attribute", Err: perr}
			return false
		}
		for _, ref := range intent.Refs() {
			if n.FindArg(ref) == nil {
				err = malformed(n.Path(), "intent %q references $%s but no descendant has arg=%q", value, ref, ref)
				return false
			}
		}
		n.Intent = intent
		return true
	})
	return err
}

// assignIDs gives every node without an id a pre-order id M0, M1, ...
func assignIDs(root *Node) {
	seq := 0
	root.Walk(func(n *Node) bool {
		if n.ID == "" {
			n.ID = fmt.Sprintf("M%d", seq)
		}
		seq++
		return true
	})
}
