package prefs

import (
	"fmt"
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// profileSections are the top-level keys of a preference profile file.
var profileSections = []string{"Speech", "Navigation", "Braille", "Other"}

// LoadProfile reads a preference profile from a YAML file.
func LoadProfile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile flattens a profile document into preference values.
//
// A profile groups preferences by section:
//
//	Speech:
//	  Language: nb
//	  MathRate: 100
//	Braille:
//	  BrailleCode: Nemeth
//
// Scalars of any YAML type are accepted and converted to strings, so
// MathRate: 100 and Bookmark: false need no quoting. A name appearing in
// two sections is an error.
func ParseProfile(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	out := make(map[string]string)
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, section := range keys {
		if !isProfileSection(section) {
			return nil, fmt.Errorf("unknown profile section %q (expected one of %v)", section, profileSections)
		}
		if raw[section] == nil {
			continue
		}
		var values map[string]string
		if err := mapstructure.WeakDecode(raw[section], &values); err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
		for name, value := range values {
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("preference %q appears in more than one section", name)
			}
			out[name] = value
		}
	}
	return out, nil
}

func isProfileSection(name string) bool {
	for _, s := range profileSections {
		if s == name {
			return true
		}
	}
	return false
}
