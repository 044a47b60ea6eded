package mathml

import (
	"fmt"
	"strings"
)

// String serializes the canonical tree as MathML. Every element carries
// its id; invisible and control characters are written as character
// references so the output is readable.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(string(n.Tag))
	if n.ID != "" {
		writeAttr(b, "id", n.ID)
	}
	for _, a := range n.Attrs {
		writeAttr(b, a.Name, a.Value)
	}
	if n.IsLeaf() {
		b.WriteByte('>')
		escapeText(b, n.Text)
	} else {
		if len(n.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.write(b)
		}
	}
	b.WriteString("</")
	b.WriteString(string(n.Tag))
	b.WriteByte('>')
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	escapeText(b, value)
	b.WriteByte('"')
}

func escapeText(b *strings.Builder, s string) {
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"':
			b.WriteString("&quot;")
		case r >= 0x2061 && r <= 0x2064, r < 0x20:
			fmt.Fprintf(b, "&#x%X;", r)
		default:
			b.WriteRune(r)
		}
	}
}
