// Package mathcat turns MathML into speech text and braille.
//
// A Session holds preferences, a rule repository and the active
// expression:
//
//	s, err := mathcat.NewSession()
//	if err != nil { ... }
//	_ = s.SetPreference("Language", "nb")
//	if _, err := s.SetMathML(`<math><mn>2</mn><mo>×</mo><mn>3</mn></math>`); err != nil { ... }
//	text, err := s.SpokenText() // "2 ganger 3"
//
// The package-level functions (SetMathML, GetSpokenText, ...) operate on a
// default session created on first use.
//
// Errors carry a stable code; see Code and the IsXxx helpers.
package mathcat
