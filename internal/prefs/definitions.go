package prefs

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Kind is the declared type of a preference.
type Kind int

const (
	KindEnum Kind = iota
	KindBool
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	default:
		return "string"
	}
}

// Definition declares one preference.
type Definition struct {
	Name    string
	Kind    Kind
	Default string
	Values  []string // KindEnum
	Min     int      // KindInt
	Max     int      // KindInt

	// normalize validates a value and returns its stored form.
	normalize func(value string) (string, error)
}

// Preference names referenced from Go code. Rule files refer to the others
// by string.
const (
	Language            = "Language"
	SpeechStyle         = "SpeechStyle"
	Verbosity           = "Verbosity"
	BrailleCode         = "BrailleCode"
	DecimalSeparator    = "DecimalSeparator"
	DecimalSeparators   = "DecimalSeparators"
	BlockSeparators     = "BlockSeparators"
	IntentErrorRecovery = "IntentErrorRecovery"
)

// Enum values referenced from Go code.
const (
	VerbosityTerse   = "Terse"
	VerbosityMedium  = "Medium"
	VerbosityVerbose = "Verbose"

	RecoveryIgnoreIntent = "IgnoreIntent"
	RecoveryError        = "Error"
)

var definitions = []Definition{
	{Name: Language, Kind: KindString, Default: "en", normalize: normalizeLanguage},
	{Name: SpeechStyle, Kind: KindString, Default: "ClearSpeak", normalize: nonEmpty},
	enum(Verbosity, VerbosityMedium, VerbosityTerse, VerbosityVerbose),
	enum("Impairment", "Blindness", "LowVision", "LearningDisability"),
	{Name: "SubjectArea", Kind: KindString, Default: "General"},
	intRange("MathRate", 100, 1, 500),
	intRange("PauseFactor", 100, 0, 1000),
	enum("TTS", "None", "SSML", "SAPI5"),
	enum("SpeechSound", "None", "Beep"),
	{Name: "SpeechOverrides_CapitalLetters", Kind: KindString, Default: ""},
	boolean("CapitalLetters_UseWord", true),
	boolean("CapitalLetters_Beep", false),
	enum(IntentErrorRecovery, RecoveryIgnoreIntent, RecoveryError),

	enum("ClearSpeak_VerticalLine", "Auto", "Divides", "Given", "SuchThat"),
	enum("ClearSpeak_Ellipses", "Auto", "AndSoOn"),
	enum("ClearSpeak_MultSymbolX", "Auto", "By", "Cross"),
	enum("ClearSpeak_ImpliedTimes", "Auto", "MoreImpliedTimes", "None"),

	enum(DecimalSeparator, "Auto", ".", ",", "Custom"),
	{Name: DecimalSeparators, Kind: KindString, Default: "."},
	{Name: BlockSeparators, Kind: KindString, Default: ","},

	enum("NavMode", "Enhanced", "Simple", "Character"),
	enum("NavVerbosity", VerbosityMedium, VerbosityTerse, VerbosityVerbose),
	boolean("Overview", false),

	{Name: BrailleCode, Kind: KindString, Default: "Nemeth", normalize: nonEmpty},
	enum("BrailleNavHighlight", "EndPoints", "Off", "FirstChar", "All"),

	boolean("Bookmark", false),
}

var byName = func() map[string]*Definition {
	m := make(map[string]*Definition, len(definitions))
	for i := range definitions {
		m[definitions[i].Name] = &definitions[i]
	}
	return m
}()

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	d, ok := byName[name]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

// Names returns every preference name in sorted order.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for _, d := range definitions {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Normalize validates value against the definition's domain and returns
// the form that is stored.
func (d Definition) Normalize(value string) (string, error) {
	switch d.Kind {
	case KindEnum:
		if !slices.Contains(d.Values, value) {
			return "", invalidPreference(d.Name, value, "must be one of %s", strings.Join(d.Values, ", "))
		}
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", invalidPreference(d.Name, value, "must be true or false")
		}
		return strconv.FormatBool(b), nil
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return "", invalidPreference(d.Name, value, "must be an integer")
		}
		if n < d.Min || n > d.Max {
			return "", invalidPreference(d.Name, value, "must be between %d and %d", d.Min, d.Max)
		}
		return strconv.Itoa(n), nil
	}
	if d.normalize != nil {
		out, err := d.normalize(value)
		if err != nil {
			return "", invalidPreference(d.Name, value, "%s", err.Error())
		}
		return out, nil
	}
	return value, nil
}

func enum(name, def string, others ...string) Definition {
	return Definition{Name: name, Kind: KindEnum, Default: def, Values: append([]string{def}, others...)}
}

func boolean(name string, def bool) Definition {
	return Definition{Name: name, Kind: KindBool, Default: strconv.FormatBool(def)}
}

func intRange(name string, def, lo, hi int) Definition {
	return Definition{Name: name, Kind: KindInt, Default: strconv.Itoa(def), Min: lo, Max: hi}
}

type domainError string

func (e domainError) Error() string { return string(e) }

func nonEmpty(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domainError("must not be empty")
	}
	return value, nil
}

// normalizeLanguage accepts any well-formed BCP 47 tag and stores its
// canonical spelling ("nb-no" becomes "nb-NO"). Whether rules exist for the
// language is decided at render time.
func normalizeLanguage(value string) (string, error) {
	tag, err := language.Raw.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", domainError("not a valid language tag")
	}
	return tag.String(), nil
}
