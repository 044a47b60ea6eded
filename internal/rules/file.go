package rules

// File is the decoded form of one rule file.
type File struct {
	Kind        string                       `yaml:"kind" json:"kind"`
	Locale      string                       `yaml:"locale,omitempty" json:"locale,omitempty"`
	Style       string                       `yaml:"style,omitempty" json:"style,omitempty"`
	Default     bool                         `yaml:"default,omitempty" json:"default,omitempty"`
	Code        string                       `yaml:"code,omitempty" json:"code,omitempty"`
	Include     []string                     `yaml:"include,omitempty" json:"include,omitempty"`
	Punctuation map[string]PunctSpec         `yaml:"punctuation,omitempty" json:"punctuation,omitempty"`
	Definitions map[string]map[string]string `yaml:"definitions,omitempty" json:"definitions,omitempty"`
	Rules       []RuleSpec                   `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// File kinds.
const (
	KindSpeech   = "speech"
	KindBraille  = "braille"
	KindFragment = "fragment"
)

// PunctSpec is how a punctuation kind is spoken.
type PunctSpec struct {
	Text  string `yaml:"text" json:"text"`
	Pause string `yaml:"pause,omitempty" json:"pause,omitempty"`
}

// RuleSpec is one rule as written.
type RuleSpec struct {
	Name     string           `yaml:"name" json:"name"`
	Tag      string           `yaml:"tag,omitempty" json:"tag,omitempty"`
	Intent   string           `yaml:"intent,omitempty" json:"intent,omitempty"`
	Params   []string         `yaml:"params,omitempty" json:"params,omitempty"`
	Run      []RunElementSpec `yaml:"run,omitempty" json:"run,omitempty"`
	At       string           `yaml:"at,omitempty" json:"at,omitempty"`
	Priority int              `yaml:"priority,omitempty" json:"priority,omitempty"`
	When     []ConditionSpec  `yaml:"when,omitempty" json:"when,omitempty"`
	Then     []ItemSpec       `yaml:"then" json:"then"`
}

// RunElementSpec matches one sibling of a run.
type RunElementSpec struct {
	Tag  string   `yaml:"tag" json:"tag"`
	Text []string `yaml:"text,omitempty" json:"text,omitempty"`
}

// ConditionSpec is one predicate of a rule. Exactly one of Text, Pref,
// Test, XPath and In is set.
type ConditionSpec struct {
	Text  []string            `yaml:"text,omitempty" json:"text,omitempty"`
	Pref  map[string][]string `yaml:"pref,omitempty" json:"pref,omitempty"`
	Test  string              `yaml:"test,omitempty" json:"test,omitempty"`
	XPath string              `yaml:"xpath,omitempty" json:"xpath,omitempty"`
	In    string              `yaml:"in,omitempty" json:"in,omitempty"`
	Is    []string            `yaml:"is,omitempty" json:"is,omitempty"`
	Of    string              `yaml:"of,omitempty" json:"of,omitempty"`
	Not   bool                `yaml:"not,omitempty" json:"not,omitempty"`
}

// ItemSpec is one template item. Exactly one action field is set; Of
// qualifies lookup and text.
type ItemSpec struct {
	Word    string `yaml:"word,omitempty" json:"word,omitempty"`
	Pause   string `yaml:"pause,omitempty" json:"pause,omitempty"`
	Punct   string `yaml:"punct,omitempty" json:"punct,omitempty"`
	Braille string `yaml:"braille,omitempty" json:"braille,omitempty"`
	X       string `yaml:"x,omitempty" json:"x,omitempty"`
	Lookup  string `yaml:"lookup,omitempty" json:"lookup,omitempty"`
	Text    string `yaml:"text,omitempty" json:"text,omitempty"`
	Chars   string `yaml:"chars,omitempty" json:"chars,omitempty"`
	Of      string `yaml:"of,omitempty" json:"of,omitempty"`
}
