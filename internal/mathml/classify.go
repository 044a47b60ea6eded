package mathml

import (
	"slices"
	"sort"
	"unicode"
	"unicode/utf8"
)

// Classifier reports a structural fact about a node as a short label.
// Rule files compare the label with `test: <name>` and `is: [...]`;
// boolean classifiers answer "true" or "false".
type Classifier func(n *Node) string

var classifiers = map[string]Classifier{
	"bar-role":        barRole,
	"parens":          parens,
	"adjacent-parens": adjacentParens,
	"function-name":   boolClass(isFunctionNode),
	"letter-case":     letterCase,
	"set-builder":     boolClass(isSetBuilder),
	"abs-value":       boolClass(isAbsValue),
	"ellipsis":        boolClass(isEllipsis),
	"leaf":            boolClass((*Node).IsLeaf),
	"integer":         boolClass(isInteger),
	"position":        position,
}

// LookupClassifier returns the classifier registered under name.
func LookupClassifier(name string) (Classifier, bool) {
	c, ok := classifiers[name]
	return c, ok
}

// ClassifierNames lists the registered classifiers in sorted order.
func ClassifierNames() []string {
	names := make([]string, 0, len(classifiers))
	for name := range classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func boolClass(f func(*Node) bool) Classifier {
	return func(n *Node) string {
		if f(n) {
			return "true"
		}
		return "false"
	}
}

var verticalBars = []string{"|", "∣"}

func isBar(n *Node) bool { return n != nil && n.Is(TagOperator, verticalBars...) }

// barRole decides how a vertical bar between two operands reads when no
// enclosing structure claims it: "divides" between two numbers, "given"
// otherwise. Set-builder, absolute value and evaluated-at bars are
// handled by the rules of the enclosing node and never reach here.
func barRole(n *Node) string {
	if !isBar(n) {
		return "none"
	}
	prev, next := n.PrevSibling(), n.NextSibling()
	if prev != nil && next != nil && prev.Tag == TagNumber && next.Tag == TagNumber {
		return "divides"
	}
	return "given"
}

// isFencedBy reports whether n is a fence group mrow(open, x, close).
func isFencedBy(n *Node, open, close string) bool {
	return n != nil && n.Tag == TagRow && len(n.Children) == 3 &&
		n.Children[0].Is(TagOperator, open) && n.Children[2].Is(TagOperator, close)
}

func isParenGroup(n *Node) bool { return isFencedBy(n, "(", ")") }

func isScript(n *Node) bool {
	switch n.Tag {
	case TagSup, TagSub, TagSubSup:
		return true
	}
	return false
}

// parens classifies a parenthesized group: "silent" when the parentheses
// add nothing to the spoken reading, "spoken" when they disambiguate
// precedence, "none" when n is not a group.
//
// Parentheses are silent around a single identifier or number, a negative
// number, or a fraction of numbers. As the base of a script only a single
// identifier or number keeps them silent: (x)^2 reads "x squared" but
// (-2)^2 and (x+y)^2 voice the parentheses.
func parens(n *Node) string {
	if !isParenGroup(n) {
		return "none"
	}
	content := n.Children[1]
	simple := content.Tag == TagIdentifier || content.Tag == TagNumber
	if p := n.parent; p != nil && isScript(p) && n.index == 0 {
		if simple {
			return "silent"
		}
		return "spoken"
	}
	if simple || isNegativeNumber(content) || isNumericFraction(content) {
		return "silent"
	}
	return "spoken"
}

func isNegativeNumber(n *Node) bool {
	return n.Tag == TagRow && len(n.Children) == 2 &&
		n.Children[0].Is(TagOperator, "−") && n.Children[1].Tag == TagNumber
}

func isNumericFraction(n *Node) bool {
	return n.Tag == TagFraction && n.Children[0].Tag == TagNumber && n.Children[1].Tag == TagNumber
}

// adjacentParens reports whether a neighbour of n is a parenthesized group.
func adjacentParens(n *Node) string {
	if isParenGroup(n.PrevSibling()) || isParenGroup(n.NextSibling()) {
		return "true"
	}
	return "false"
}

func isFunctionNode(n *Node) bool {
	if n.Tag == TagIdentifier {
		return IsFunctionName(n.Text)
	}
	if isScript(n) {
		base := n.Children[0]
		return base.Tag == TagIdentifier && IsFunctionName(base.Text)
	}
	return false
}

func letterCase(n *Node) string {
	if !n.IsLeaf() || utf8.RuneCountInString(n.Text) != 1 {
		return "other"
	}
	r, _ := utf8.DecodeRuneInString(n.Text)
	switch {
	case unicode.IsUpper(r):
		return "upper"
	case unicode.IsLower(r):
		return "lower"
	default:
		return "other"
	}
}

// isSetBuilder matches {x | condition}: braces around a row with a
// top-level bar or colon.
func isSetBuilder(n *Node) bool {
	if !isFencedBy(n, "{", "}") {
		return false
	}
	content := n.Children[1]
	if content.Tag != TagRow {
		return false
	}
	return slices.ContainsFunc(content.Children, func(c *Node) bool {
		return isBar(c) || c.Is(TagOperator, ":")
	})
}

func isAbsValue(n *Node) bool {
	return n.Tag == TagRow && len(n.Children) == 3 && isBar(n.Children[0]) && isBar(n.Children[2])
}

func isEllipsis(n *Node) bool {
	return n.IsLeaf() && slices.Contains([]string{"…", "⋯", "..."}, n.Text)
}

func isInteger(n *Node) bool {
	if n.Tag != TagNumber || n.Text == "" {
		return false
	}
	for _, r := range n.Text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func position(n *Node) string {
	p := n.parent
	switch {
	case p == nil:
		return "root"
	case len(p.Children) == 1:
		return "only"
	case n.index == 0:
		return "first"
	case n.index == len(p.Children)-1:
		return "last"
	default:
		return "interior"
	}
}
