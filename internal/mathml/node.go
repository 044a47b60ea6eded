package mathml

import (
	"fmt"
	"slices"
	"strings"
)

// Tag is the element name of a canonical node.
type Tag string

const (
	TagMath       Tag = "math"
	TagRow        Tag = "mrow"
	TagOperator   Tag = "mo"
	TagIdentifier Tag = "mi"
	TagNumber     Tag = "mn"
	TagText       Tag = "mtext"
	TagString     Tag = "ms"
	TagFraction   Tag = "mfrac"
	TagSqrt       Tag = "msqrt"
	TagRoot       Tag = "mroot"
	TagSup        Tag = "msup"
	TagSub        Tag = "msub"
	TagSubSup     Tag = "msubsup"
	TagUnder      Tag = "munder"
	TagOver       Tag = "mover"
	TagUnderOver  Tag = "munderover"
	TagStyle      Tag = "mstyle"
	TagPadded     Tag = "mpadded"
	TagError      Tag = "merror"
	TagEnclose    Tag = "menclose"
	TagTable      Tag = "mtable"
	TagTableRow   Tag = "mtr"
	TagTableCell  Tag = "mtd"
)

// Invisible operators made explicit by canonicalization.
const (
	FunctionApplication = "\u2061"
	InvisibleTimes      = "\u2062"
	InvisibleSeparator  = "\u2063"
	InvisiblePlus       = "\u2064"
)

// Tags returns every tag a canonical tree can contain, in sorted order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(tagInfo))
	for t := range tagInfo {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// IsValidTag reports whether t can appear in a canonical tree.
func IsValidTag(t Tag) bool {
	_, ok := tagInfo[t]
	return ok
}

type tagKind int

const (
	kindLeaf     tagKind = iota // text content only
	kindRow                     // any number of children
	kindInferred                // one child, wrapped in an mrow if needed
	kindFixed                   // fixed arity
)

var tagInfo = map[Tag]struct {
	kind  tagKind
	arity int
}{
	TagMath:       {kind: kindRow},
	TagRow:        {kind: kindRow},
	TagOperator:   {kind: kindLeaf},
	TagIdentifier: {kind: kindLeaf},
	TagNumber:     {kind: kindLeaf},
	TagText:       {kind: kindLeaf},
	TagString:     {kind: kindLeaf},
	TagFraction:   {kind: kindFixed, arity: 2},
	TagRoot:       {kind: kindFixed, arity: 2},
	TagSup:        {kind: kindFixed, arity: 2},
	TagSub:        {kind: kindFixed, arity: 2},
	TagSubSup:     {kind: kindFixed, arity: 3},
	TagUnder:      {kind: kindFixed, arity: 2},
	TagOver:       {kind: kindFixed, arity: 2},
	TagUnderOver:  {kind: kindFixed, arity: 3},
	TagSqrt:       {kind: kindInferred},
	TagStyle:      {kind: kindInferred},
	TagPadded:     {kind: kindInferred},
	TagError:      {kind: kindInferred},
	TagEnclose:    {kind: kindInferred},
	TagTableCell:  {kind: kindInferred},
	TagTable:      {kind: kindRow},
	TagTableRow:   {kind: kindRow},
}

// Attr is one attribute of a node, kept in document order.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of the canonical tree.
//
// Children are owned exclusively by their parent. Parent pointers and
// child indexes are valid once Parse returns; code that edits a tree must
// call Relink afterwards.
type Node struct {
	Tag      Tag
	Text     string // leaves only
	Attrs    []Attr
	Children []*Node
	Intent   *Intent
	ID       string

	parent *Node
	index  int
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Index returns the position of n among its parent's children.
func (n *Node) Index() int { return n.index }

// IsLeaf reports whether n is a token element (mi, mn, mo, mtext, ms).
func (n *Node) IsLeaf() bool { return tagInfo[n.Tag].kind == kindLeaf }

// Is reports whether n has the given tag and, when texts are given, one
// of those texts.
func (n *Node) Is(tag Tag, texts ...string) bool {
	if n == nil || n.Tag != tag {
		return false
	}
	return len(texts) == 0 || slices.Contains(texts, n.Text)
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	n.Attrs = slices.DeleteFunc(n.Attrs, func(a Attr) bool { return a.Name == name })
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// PrevSibling returns the preceding sibling or nil.
func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index - 1)
}

// NextSibling returns the following sibling or nil.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index + 1)
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// TextContent concatenates the text of every leaf below n.
func (n *Node) TextContent() string {
	if n.IsLeaf() {
		return n.Text
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.IsLeaf() {
			b.WriteString(c.Text)
		}
		return true
	})
	return b.String()
}

// Walk visits n and its descendants in document order. Returning false
// from fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool { count++; return true })
	return count
}

// FindID returns the node in n's subtree with the given ID.
func (n *Node) FindID(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindArg returns the first strict descendant of n whose arg attribute
// equals name.
func (n *Node) FindArg(name string) *Node {
	var found *Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if found != nil {
				return false
			}
			if v, ok := d.Attr("arg"); ok && v == name {
				found = d
				return false
			}
			return true
		})
		if found != nil {
			break
		}
	}
	return found
}

// Path returns an XPath-like location such as /math/mrow[1]/mo[2].
// Positions count siblings with the same tag, starting at 1.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		if cur.parent == nil {
			parts = append(parts, string(cur.Tag))
			break
		}
		pos := 0
		for _, sib := range cur.parent.Children[:cur.index+1] {
			if sib.Tag == cur.Tag {
				pos++
			}
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", cur.Tag, pos))
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// Relink restores parent pointers and child indexes below n.
func (n *Node) Relink() {
	for i, c := range n.Children {
		c.parent = n
		c.index = i
		c.Relink()
	}
}

// newRow builds an mrow owning children.
func newRow(children ...*Node) *Node {
	return &Node{Tag: TagRow, Children: children}
}

// newOperator builds an mo leaf.
func newOperator(text string) *Node {
	return &Node{Tag: TagOperator, Text: text}
}
