package mathml

import (
	"math"

	"github.com/antchfx/xpath"
)

// navigator exposes a canonical tree to github.com/antchfx/xpath.
//
// The tree is presented as a document whose single element child is the
// root node. Elements carry their attributes; leaf text is the element's
// string value, so rules compare with .='|' rather than text()='|'.
type navigator struct {
	root *Node
	cur  *Node // nil means the document node
	attr int   // index into cur.Attrs, or -1
}

var _ xpath.NodeNavigator = (*navigator)(nil)

// Navigator returns an XPath navigator positioned at n.
func (n *Node) Navigator() xpath.NodeNavigator {
	return &navigator{root: n.Root(), cur: n, attr: -1}
}

func (nav *navigator) NodeType() xpath.NodeType {
	switch {
	case nav.cur == nil:
		return xpath.RootNode
	case nav.attr >= 0:
		return xpath.AttributeNode
	default:
		return xpath.ElementNode
	}
}

func (nav *navigator) LocalName() string {
	switch {
	case nav.cur == nil:
		return ""
	case nav.attr >= 0:
		return nav.cur.Attrs[nav.attr].Name
	default:
		return string(nav.cur.Tag)
	}
}

func (nav *navigator) Prefix() string { return "" }

func (nav *navigator) Value() string {
	switch {
	case nav.cur == nil:
		return nav.root.TextContent()
	case nav.attr >= 0:
		return nav.cur.Attrs[nav.attr].Value
	default:
		return nav.cur.TextContent()
	}
}

func (nav *navigator) Copy() xpath.NodeNavigator {
	c := *nav
	return &c
}

func (nav *navigator) MoveToRoot() {
	nav.cur = nil
	nav.attr = -1
}

func (nav *navigator) MoveToParent() bool {
	if nav.attr >= 0 {
		nav.attr = -1
		return true
	}
	if nav.cur == nil {
		return false
	}
	nav.cur = nav.cur.parent
	return true
}

func (nav *navigator) MoveToNextAttribute() bool {
	if nav.cur == nil || nav.attr+1 >= len(nav.cur.Attrs) {
		return false
	}
	nav.attr++
	return true
}

func (nav *navigator) MoveToChild() bool {
	if nav.attr >= 0 {
		return false
	}
	if nav.cur == nil {
		nav.cur = nav.root
		return true
	}
	if len(nav.cur.Children) == 0 {
		return false
	}
	nav.cur = nav.cur.Children[0]
	return true
}

func (nav *navigator) MoveToFirst() bool {
	if nav.attr >= 0 || nav.cur == nil || nav.cur.parent == nil || nav.cur.index == 0 {
		return false
	}
	nav.cur = nav.cur.parent.Children[0]
	return true
}

func (nav *navigator) MoveToNext() bool {
	if nav.attr >= 0 || nav.cur == nil {
		return false
	}
	next := nav.cur.NextSibling()
	if next == nil {
		return false
	}
	nav.cur = next
	return true
}

func (nav *navigator) MoveToPrevious() bool {
	if nav.attr >= 0 || nav.cur == nil {
		return false
	}
	prev := nav.cur.PrevSibling()
	if prev == nil {
		return false
	}
	nav.cur = prev
	return true
}

func (nav *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != nav.root {
		return false
	}
	nav.cur = o.cur
	nav.attr = o.attr
	return true
}

// Select evaluates expr relative to n and returns the element nodes it
// selects, in the order the expression yields them.
func Select(expr *xpath.Expr, n *Node) []*Node {
	var out []*Node
	it := expr.Select(n.Navigator())
	for it.MoveNext() {
		nav, ok := it.Current().(*navigator)
		if !ok || nav.cur == nil || nav.attr >= 0 {
			continue
		}
		out = append(out, nav.cur)
	}
	return out
}

// Test evaluates expr at n and converts the result to a boolean with the
// XPath boolean() rules.
func Test(expr *xpath.Expr, n *Node) bool {
	switch v := expr.Evaluate(n.Navigator()).(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case *xpath.NodeIterator:
		return v.MoveNext()
	default:
		return false
	}
}
