package prefs

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

// Store holds the current preference values of one session.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore returns a store initialized with every default.
func NewStore() *Store {
	values := make(map[string]string, len(definitions))
	for _, d := range definitions {
		values[d.Name] = d.Default
	}
	return &Store{values: values}
}

// Set validates and stores one value. On error the previous value is kept.
//
// Setting Language or DecimalSeparator also updates the derived
// DecimalSeparators and BlockSeparators values.
func (s *Store) Set(name, value string) error {
	def, ok := byName[name]
	if !ok {
		return unknownPreference(name)
	}
	normalized, err := def.Normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = normalized

	switch name {
	case Language, DecimalSeparator:
		s.deriveSeparators()
	}
	return nil
}

// Get returns the current value of name.
func (s *Store) Get(name string) (string, error) {
	if _, ok := byName[name]; !ok {
		return "", unknownPreference(name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name], nil
}

// Apply sets every value in sorted name order and returns all failures
// joined. Values that validate are applied even when others fail.
func (s *Store) Apply(values map[string]string) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if err := s.Set(name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns an immutable copy of the current values.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{values: maps.Clone(s.values)}
}

// deriveSeparators recomputes the number separators. Caller holds s.mu.
func (s *Store) deriveSeparators() {
	switch s.values[DecimalSeparator] {
	case "Auto":
		dec, block := separatorsFor(s.values[Language])
		s.values[DecimalSeparators] = dec
		s.values[BlockSeparators] = block
	case ".":
		s.values[DecimalSeparators] = "."
		s.values[BlockSeparators] = ","
	case ",":
		s.values[DecimalSeparators] = ","
		s.values[BlockSeparators] = "."
	}
}

// Snapshot is a read-only view of preference values taken at one instant.
// The zero Snapshot holds the defaults.
type Snapshot struct {
	values map[string]string
}

// Get returns the value of name, or "" when name is not a preference.
func (s Snapshot) Get(name string) string {
	if s.values == nil {
		if d, ok := byName[name]; ok {
			return d.Default
		}
		return ""
	}
	return s.values[name]
}

// Is reports whether name currently has one of the given values.
func (s Snapshot) Is(name string, values ...string) bool {
	return slices.Contains(values, s.Get(name))
}

// Map returns a copy of all values, for cache keys and diagnostics.
func (s Snapshot) Map() map[string]string {
	if s.values == nil {
		return NewStore().Snapshot().Map()
	}
	return maps.Clone(s.values)
}

// With returns a copy of the snapshot with name overridden. The value is
// not validated; it is meant for tests and fixed profiles.
func (s Snapshot) With(name, value string) Snapshot {
	m := s.Map()
	m[name] = value
	return Snapshot{values: m}
}
