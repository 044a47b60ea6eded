package ir

import (
	"fmt"
	"strings"
)

// TokenKind distinguishes the atomic units of the token stream.
type TokenKind int

const (
	// KindWord is a spoken word or phrase.
	KindWord TokenKind = iota
	// KindPause is a clause pause between spoken phrases.
	KindPause
	// KindPunct is a punctuation marker rendered by the locale's
	// punctuation table (komma, startparentes, ...).
	KindPunct
	// KindBraille is one or more braille cells.
	KindBraille
)

func (k TokenKind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindPause:
		return "pause"
	case KindPunct:
		return "punct"
	case KindBraille:
		return "braille"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Pause is the strength of a clause pause.
type Pause int

const (
	PauseNone Pause = iota
	PauseShort
	PauseMedium
	PauseLong
)

// ParsePause converts a rule-file pause name to a Pause.
func ParsePause(s string) (Pause, error) {
	switch s {
	case "short":
		return PauseShort, nil
	case "medium":
		return PauseMedium, nil
	case "long":
		return PauseLong, nil
	case "", "none":
		return PauseNone, nil
	default:
		return PauseNone, fmt.Errorf("unknown pause %q", s)
	}
}

func (p Pause) String() string {
	switch p {
	case PauseShort:
		return "short"
	case PauseMedium:
		return "medium"
	case PauseLong:
		return "long"
	default:
		return "none"
	}
}

// Token is one element of the stream produced by rule templates.
// Tokens are plain values and are never mutated once emitted.
type Token struct {
	Kind  TokenKind
	Text  string // word text, punctuation kind or braille cells
	Pause Pause
}

// Word returns a word token.
func Word(text string) Token { return Token{Kind: KindWord, Text: text} }

// ClausePause returns a pause token of the given strength.
func ClausePause(p Pause) Token { return Token{Kind: KindPause, Pause: p} }

// Punctuation returns a punctuation marker such as "comma" or "open-paren".
func Punctuation(kind string) Token { return Token{Kind: KindPunct, Text: kind} }

// BrailleSymbol returns a token carrying braille cells.
func BrailleSymbol(cells string) Token { return Token{Kind: KindBraille, Text: cells} }

func (t Token) String() string {
	switch t.Kind {
	case KindPause:
		return "<" + t.Pause.String() + ">"
	case KindPunct:
		return "[" + t.Text + "]"
	default:
		return t.Text
	}
}

// Debug renders a token stream in a compact, unambiguous form for logs and
// golden snapshots.
func Debug(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
