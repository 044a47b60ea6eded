package rules

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// DefaultStyle is preferred when a locale marks no default style.
const DefaultStyle = "ClearSpeak"

type speechKey struct {
	locale string
	style  string
}

// Repository indexes compiled rule sets. It is immutable once loaded.
type Repository struct {
	speech   map[speechKey]*RuleSet
	braille  map[string]*RuleSet
	defaults map[string]string // locale -> default style
	marked   map[string]string // locale -> file marking default: true
	warnings []ValidationError
}

func newRepository() *Repository {
	return &Repository{
		speech:   map[speechKey]*RuleSet{},
		braille:  map[string]*RuleSet{},
		defaults: map[string]string{},
		marked:   map[string]string{},
	}
}

// add registers rs, reporting duplicates (E215).
func (r *Repository) add(rs *RuleSet, src *source) []ValidationError {
	switch rs.Kind {
	case KindBraille:
		if prev, dup := r.braille[rs.Code]; dup {
			return []ValidationError{{File: src.path, Field: "code", Message: fmt.Sprintf("braille code %q already defined in %s", rs.Code, prev.Files[len(prev.Files)-1]), Code: ErrDuplicateRuleSet}}
		}
		r.braille[rs.Code] = rs
	case KindSpeech:
		k := speechKey{rs.Locale, rs.Style}
		if prev, dup := r.speech[k]; dup {
			return []ValidationError{{File: src.path, Field: "style", Message: fmt.Sprintf("%s already defined in %s", rs.Name(), prev.Files[len(prev.Files)-1]), Code: ErrDuplicateRuleSet}}
		}
		r.speech[k] = rs
		if src.file.Default {
			if prev, dup := r.marked[rs.Locale]; dup {
				return []ValidationError{{File: src.path, Field: "default", Message: fmt.Sprintf("locale %s already has a default style in %s", rs.Locale, prev), Code: ErrDuplicateRuleSet}}
			}
			r.marked[rs.Locale] = src.path
			r.defaults[rs.Locale] = rs.Style
		}
	}
	return nil
}

// finish picks the default style of every locale without an explicit one.
func (r *Repository) finish() []ValidationError {
	styles := map[string][]string{}
	for k := range r.speech {
		styles[k.locale] = append(styles[k.locale], k.style)
	}
	for locale, list := range styles {
		if _, ok := r.defaults[locale]; ok {
			continue
		}
		slices.Sort(list)
		if slices.Contains(list, DefaultStyle) {
			r.defaults[locale] = DefaultStyle
		} else {
			r.defaults[locale] = list[0]
		}
	}
	return nil
}

// Warnings returns the non-fatal problems found while loading.
func (r *Repository) Warnings() []ValidationError { return r.warnings }

// Speech resolves the rule set for locale and style, falling back from a
// regional locale to its base language and from an unknown style to the
// locale's default style.
func (r *Repository) Speech(locale, style string) (*RuleSet, error) {
	tag, err := language.Raw.Parse(locale)
	if err != nil {
		return nil, &LookupError{Code: CodeUnsupportedLocale, Message: fmt.Sprintf("invalid locale %q", locale)}
	}
	full := tag.String()
	b, _ := tag.Base()
	base := b.String()

	fullDefault, hasFull := r.defaults[full]
	baseDefault, hasBase := r.defaults[base]
	if !hasFull && !hasBase {
		return nil, &LookupError{
			Code:    CodeUnsupportedLocale,
			Message: fmt.Sprintf("no rules for %q (supported: %s)", locale, strings.Join(r.Languages(), ", ")),
		}
	}

	chain := []speechKey{
		{full, style},
		{base, style},
		{full, fullDefault},
		{base, baseDefault},
	}
	for _, k := range chain {
		if k.style == "" {
			continue
		}
		if rs, ok := r.speech[k]; ok {
			return rs, nil
		}
	}
	return nil, &LookupError{Code: CodeUnsupportedStyle, Message: fmt.Sprintf("no style %q for %q", style, locale)}
}

// Braille returns the rule set for a braille code.
func (r *Repository) Braille(code string) (*RuleSet, error) {
	rs, ok := r.braille[code]
	if !ok {
		return nil, &LookupError{
			Code:    CodeUnsupportedBrailleCode,
			Message: fmt.Sprintf("no braille code %q (supported: %s)", code, strings.Join(r.BrailleCodes(), ", ")),
		}
	}
	return rs, nil
}

// Languages returns the registered locales, sorted.
func (r *Repository) Languages() []string {
	return slices.Sorted(maps.Keys(r.defaults))
}

// Styles returns the styles registered for locale, or for its base
// language when the locale itself has none. Unknown locales yield nil.
func (r *Repository) Styles(locale string) []string {
	tag, err := language.Raw.Parse(locale)
	if err != nil {
		return nil
	}
	b, _ := tag.Base()
	for _, l := range []string{tag.String(), b.String()} {
		var out []string
		for k := range r.speech {
			if k.locale == l {
				out = append(out, k.style)
			}
		}
		if len(out) > 0 {
			slices.Sort(out)
			return out
		}
	}
	return nil
}

// DefaultStyleFor returns the default style of locale or its base.
func (r *Repository) DefaultStyleFor(locale string) (string, bool) {
	tag, err := language.Raw.Parse(locale)
	if err != nil {
		return "", false
	}
	if s, ok := r.defaults[tag.String()]; ok {
		return s, true
	}
	b, _ := tag.Base()
	s, ok := r.defaults[b.String()]
	return s, ok
}

// BrailleCodes returns the registered braille codes, sorted.
func (r *Repository) BrailleCodes() []string {
	return slices.Sorted(maps.Keys(r.braille))
}

// HasBrailleCode reports whether code is registered.
func (r *Repository) HasBrailleCode(code string) bool {
	_, ok := r.braille[code]
	return ok
}
