// Package braille turns a token stream into a braille string.
package braille

import (
	"strings"

	"github.com/nlbdev/MathCAT/internal/ir"
)

// Render concatenates braille symbols. Pauses and punctuation are ignored;
// stray words are written through unchanged.
func Render(tokens []ir.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case ir.KindBraille, ir.KindWord:
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}
