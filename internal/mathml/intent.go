package mathml

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Intent is a parsed intent attribute such as open-interval($start,$end).
type Intent struct {
	Name string
	Args []IntentArg
}

// IntentArg is one argument of an intent: a reference to a node carrying
// a matching arg attribute, a literal, or a nested intent.
type IntentArg struct {
	Ref     string
	Literal string
	Nested  *Intent
}

func (i *Intent) String() string {
	if len(i.Args) == 0 {
		return i.Name
	}
	args := make([]string, len(i.Args))
	for k, a := range i.Args {
		switch {
		case a.Ref != "":
			args[k] = "$" + a.Ref
		case a.Nested != nil:
			args[k] = a.Nested.String()
		default:
			args[k] = a.Literal
		}
	}
	return i.Name + "(" + strings.Join(args, ",") + ")"
}

// Refs returns every $reference used by the intent, nested ones included.
func (i *Intent) Refs() []string {
	var refs []string
	for _, a := range i.Args {
		switch {
		case a.Ref != "":
			refs = append(refs, a.Ref)
		case a.Nested != nil:
			refs = append(refs, a.Nested.Refs()...)
		}
	}
	return refs
}

type intentExpr struct {
	Name string        `parser:"@Name"`
	Args []*intentTerm `parser:"( \"(\" ( @@ ( \",\" @@ )* )? \")\" )?"`
}

type intentTerm struct {
	Ref    string      `parser:"  @Ref"`
	Number string      `parser:"| @Number"`
	Nested *intentExpr `parser:"| @@"`
}

var intentLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ref", Pattern: `\$[A-Za-z_][A-Za-z0-9_.-]*`},
	{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`},
	{Name: "Name", Pattern: `[A-Za-z_:][A-Za-z0-9_.:-]*`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var intentParser = participle.MustBuild[intentExpr](
	participle.Lexer(intentLexer),
	participle.Elide("Whitespace"),
)

// ParseIntent parses the value of an intent attribute.
func ParseIntent(s string) (*Intent, error) {
	expr, err := intentParser.ParseString("intent", strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid intent %q: %w", s, err)
	}
	return expr.intent(), nil
}

func (e *intentExpr) intent() *Intent {
	out := &Intent{Name: e.Name}
	for _, t := range e.Args {
		switch {
		case t.Ref != "":
			out.Args = append(out.Args, IntentArg{Ref: strings.TrimPrefix(t.Ref, "$")})
		case t.Number != "":
			out.Args = append(out.Args, IntentArg{Literal: t.Number})
		case t.Nested != nil:
			nested := t.Nested.intent()
			if len(nested.Args) == 0 {
				out.Args = append(out.Args, IntentArg{Literal: nested.Name})
			} else {
				out.Args = append(out.Args, IntentArg{Nested: nested})
			}
		}
	}
	return out
}
