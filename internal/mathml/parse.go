package mathml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxNodes bounds the size of an accepted expression.
const DefaultMaxNodes = 20000

type config struct {
	maxNodes int
	logger   *slog.Logger
}

// Option configures Parse.
type Option func(*config)

// WithMaxNodes sets the largest accepted canonical tree. Zero or negative
// disables the check.
func WithMaxNodes(n int) Option {
	return func(c *config) { c.maxNodes = n }
}

// WithLogger sets the logger used for canonicalization diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// entityRef matches a named character reference.
var entityRef = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)

// xmlEntities are the predefined XML entities the decoder expands itself.
var xmlEntities = map[string]bool{"amp": true, "lt": true, "gt": true, "quot": true, "apos": true}

// mathEntities are names whose MathML character differs from the HTML one.
var mathEntities = map[string]string{
	"phi": "\u03D5",
}

// expandEntities rewrites named MathML character entities (&beta;,
// &rarr;, &InvisibleTimes;, ...) as numeric references, since the XML
// decoder only knows the five predefined ones. Unknown names are left for
// the decoder to reject.
func expandEntities(markup string) string {
	return entityRef.ReplaceAllStringFunc(markup, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if xmlEntities[name] {
			return ref
		}
		text, ok := mathEntities[name]
		if !ok {
			text = html.UnescapeString(ref)
			if text == ref {
				return ref
			}
		}
		var sb strings.Builder
		for _, r := range text {
			fmt.Fprintf(&sb, "&#x%X;", r)
		}
		return sb.String()
	})
}

// Parse parses MathML markup and returns its canonical tree.
func Parse(markup string, opts ...Option) (*Node, error) {
	cfg := config{maxNodes: DefaultMaxNodes, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	markup = expandEntities(markup)
	if err := checkWellFormed(markup); err != nil {
		return nil, &ParseError{Code: CodeMalformedMarkup, Message: "markup is not well-formed", Err: err}
	}

	doc, err := xmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Code: CodeMalformedMarkup, Message: "markup is not well-formed", Err: err}
	}

	var rootElem *xmlquery.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			rootElem = c
			break
		}
	}
	if rootElem == nil {
		return nil, malformed("", "no root element")
	}
	if rootElem.Data != string(TagMath) {
		return nil, malformed("/"+rootElem.Data, "root element must be <math>, got <%s>", rootElem.Data)
	}

	b := &builder{logger: cfg.logger}
	root, err := b.build(rootElem, "/math")
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, malformed("/math", "empty expression")
	}

	if err := canonicalize(root, cfg.logger); err != nil {
		return nil, err
	}

	if cfg.maxNodes > 0 {
		if n := root.Count(); n > cfg.maxNodes {
			return nil, &ParseError{
				Code:    CodeExpressionTooLarge,
				Path:    "/math",
				Message: fmt.Sprintf("expression has %d nodes, limit is %d", n, cfg.maxNodes),
			}
		}
	}
	return root, nil
}

// checkWellFormed runs the markup through a strict XML decoder. External
// entities are never fetched and no custom entities are expanded.
func checkWellFormed(markup string) error {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = true
	dec.Entity = map[string]string{}
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

type builder struct {
	logger *slog.Logger
}

// build converts one xmlquery element into a Node. It returns nil for
// elements that canonicalization drops entirely (mspace, mphantom,
// annotations).
func (b *builder) build(x *xmlquery.Node, path string) (*Node, error) {
	name := x.Data
	switch name {
	case "mspace", "mphantom", "annotation", "annotation-xml", "none", "mprescripts", "maligngroup", "malignmark":
		return nil, nil
	case "semantics":
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				return b.build(c, path)
			}
		}
		return nil, malformed(path, "<semantics> has no presentation child")
	case "mfenced":
		return b.buildFenced(x, path)
	}

	tag := Tag(name)
	info, ok := tagInfo[tag]
	if !ok {
		return nil, malformed(path, "unknown element <%s>", name)
	}

	n := &Node{Tag: tag}
	for _, a := range x.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		attrName := a.Name.Local
		if a.Name.Space != "" && a.Name.Space != "xmlns" {
			attrName = a.Name.Space + ":" + a.Name.Local
		}
		if attrName == "id" {
			n.ID = a.Value
			continue
		}
		n.Attrs = append(n.Attrs, Attr{Name: attrName, Value: a.Value})
	}

	if info.kind == kindLeaf {
		var text strings.Builder
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.TextNode, xmlquery.CharDataNode:
				text.WriteString(c.Data)
			case xmlquery.ElementNode:
				return nil, malformed(path, "token element <%s> must contain only text, found <%s>", name, c.Data)
			}
		}
		n.Text = normalizeText(tag, text.String())
		return n, nil
	}

	counts := map[string]int{}
	for c := x.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode:
			counts[c.Data]++
			child, err := b.build(c, fmt.Sprintf("%s/%s[%d]", path, c.Data, counts[c.Data]))
			if err != nil {
				return nil, err
			}
			if child != nil {
				n.Children = append(n.Children, child)
			}
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(c.Data) != "" {
				b.logger.Debug("ignoring stray text in container", "path", path, "text", strings.TrimSpace(c.Data))
			}
		}
	}

	if info.kind == kindFixed && len(n.Children) != info.arity {
		return nil, malformed(path, "<%s> needs %d children, got %d", name, info.arity, len(n.Children))
	}
	return n, nil
}

// buildFenced rewrites <mfenced> as an mrow with explicit fences and
// separators.
func (b *builder) buildFenced(x *xmlquery.Node, path string) (*Node, error) {
	open, close, seps := "(", ")", ","
	for _, a := range x.Attr {
		switch a.Name.Local {
		case "open":
			open = a.Value
		case "close":
			close = a.Value
		case "separators":
			seps = strings.Join(strings.Fields(a.Value), "")
		}
	}
	sepRunes := []rune(seps)

	row := newRow()
	if open = strings.TrimSpace(open); open != "" {
		row.Children = append(row.Children, newOperator(open))
	}
	var items []*Node
	counts := map[string]int{}
	for c := x.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		counts[c.Data]++
		child, err := b.build(c, fmt.Sprintf("%s/%s[%d]", path, c.Data, counts[c.Data]))
		if err != nil {
			return nil, err
		}
		if child != nil {
			items = append(items, child)
		}
	}
	for i, item := range items {
		if i > 0 && len(sepRunes) > 0 {
			k := min(i-1, len(sepRunes)-1)
			row.Children = append(row.Children, newOperator(string(sepRunes[k])))
		}
		row.Children = append(row.Children, item)
	}
	if close = strings.TrimSpace(close); close != "" {
		row.Children = append(row.Children, newOperator(close))
	}
	return row, nil
}

// normalizeText trims and NFC-normalizes leaf text. Operators written with
// an ASCII hyphen become the minus sign.
func normalizeText(tag Tag, s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	if tag == TagOperator {
		switch s {
		case "-":
			s = "−"
		case "*":
			s = "⋅"
		}
	}
	return s
}
