// Package speech turns a token stream into spoken text.
package speech

import (
	"strings"

	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/rules"
)

var pauseMarks = map[ir.Pause]string{
	ir.PauseShort:  ",",
	ir.PauseMedium: ";",
	ir.PauseLong:   ".",
}

// Render joins the words of tokens with spaces. A pause is written as a
// mark after the preceding word; in a run of pauses the first one wins and
// pauses at either end are dropped. Punctuation is spoken with the text
// from punctuation and then behaves like its configured pause.
func Render(tokens []ir.Token, punctuation map[string]rules.Punct) string {
	var sb strings.Builder
	pending := ir.PauseNone
	word := func(text string) {
		if text == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString(pauseMarks[pending])
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
		pending = ir.PauseNone
	}
	pause := func(p ir.Pause) {
		if sb.Len() > 0 && pending == ir.PauseNone {
			pending = p
		}
	}

	for _, t := range tokens {
		switch t.Kind {
		case ir.KindWord, ir.KindBraille:
			word(t.Text)
		case ir.KindPause:
			pause(t.Pause)
		case ir.KindPunct:
			p, ok := punctuation[t.Text]
			if !ok {
				word(t.Text)
				continue
			}
			word(p.Text)
			pause(p.Pause)
		}
	}
	return sb.String()
}
