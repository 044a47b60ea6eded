package mathcat

import "sync"

var defaultSession = sync.OnceValues(func() (*Session, error) { return NewSession() })

// Default returns the process-wide default session.
func Default() (*Session, error) { return defaultSession() }

// SetRulesDir reloads the default session's rules from path.
func SetRulesDir(path string) error {
	s, err := Default()
	if err != nil {
		return err
	}
	return s.SetRulesDir(path)
}

// SetPreference sets a preference of the default session.
func SetPreference(name, value string) error {
	s, err := Default()
	if err != nil {
		return err
	}
	return s.SetPreference(name, value)
}

// GetPreference reads a preference of the default session.
func GetPreference(name string) (string, error) {
	s, err := Default()
	if err != nil {
		return "", err
	}
	return s.GetPreference(name)
}

// SetMathML sets the default session's active expression.
func SetMathML(markup string) (string, error) {
	s, err := Default()
	if err != nil {
		return "", err
	}
	return s.SetMathML(markup)
}

// GetSpokenText speaks the default session's active expression.
func GetSpokenText() (string, error) {
	s, err := Default()
	if err != nil {
		return "", err
	}
	return s.SpokenText()
}

// GetBraille brailles the default session's active expression.
func GetBraille(navHint string) (string, error) {
	s, err := Default()
	if err != nil {
		return "", err
	}
	return s.Braille(navHint)
}

// GetSupportedLanguages lists the default session's languages.
func GetSupportedLanguages() []string {
	s, err := Default()
	if err != nil {
		return nil
	}
	return s.SupportedLanguages()
}

// GetSupportedSpeechStyles lists the speech styles for lang.
func GetSupportedSpeechStyles(lang string) []string {
	s, err := Default()
	if err != nil {
		return nil
	}
	return s.SupportedSpeechStyles(lang)
}

// GetSupportedBrailleCodes lists the default session's braille codes.
func GetSupportedBrailleCodes() []string {
	s, err := Default()
	if err != nil {
		return nil
	}
	return s.SupportedBrailleCodes()
}

// GetVersion returns Version.
func GetVersion() string { return Version }
