package prefs

import (
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// separatorsFor derives the decimal and digit-group separators of a
// language from CLDR number formatting: 1234567.5 is formatted for the
// locale and the separators are read back out of the result.
func separatorsFor(lang string) (decimal, block string) {
	tag, err := language.Parse(lang)
	if err != nil {
		return ".", ","
	}
	formatted := []rune(message.NewPrinter(tag).Sprintf("%v", number.Decimal(1234567.5)))

	decimal, block = ".", ","
	if n := len(formatted); n >= 2 && !unicode.IsDigit(formatted[n-2]) {
		decimal = string(formatted[n-2])
	}
	if len(formatted) >= 2 && !unicode.IsDigit(formatted[1]) {
		block = string(formatted[1])
	}
	return decimal, block
}
