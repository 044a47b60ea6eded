package prefs

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore()

	for _, name := range Names() {
		def, ok := Lookup(name)
		require.True(t, ok, name)
		got, err := s.Get(name)
		require.NoError(t, err)
		assert.Equal(t, def.Default, got, name)
	}
}

func TestSetValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"Verbosity", "Terse", "Terse"},
		{"ClearSpeak_VerticalLine", "Given", "Given"},
		{"MathRate", " 120 ", "120"},
		{"Bookmark", "1", "true"},
		{"CapitalLetters_Beep", "TRUE", "true"},
		{"Language", "nb-no", "nb-NO"},
		{"SpeechStyle", "SimpleSpeak", "SimpleSpeak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.Set(tt.name, tt.value))
			got, err := s.Get(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetInvalidKeepsPreviousValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Verbosity", "Chatty"},
		{"MathRate", "fast"},
		{"MathRate", "0"},
		{"Bookmark", "maybe"},
		{"Language", "not a tag!"},
		{"SpeechStyle", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			s := NewStore()
			before, err := s.Get(tt.name)
			require.NoError(t, err)

			err = s.Set(tt.name, tt.value)
			require.Error(t, err)
			assert.True(t, IsInvalid(err))
			assert.False(t, IsUnknown(err))

			after, err := s.Get(tt.name)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestUnknownPreference(t *testing.T) {
	s := NewStore()

	err := s.Set("Volume", "11")
	require.Error(t, err)
	assert.True(t, IsUnknown(err))

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeUnknownPreference, pe.ErrorCode())

	_, err = s.Get("Volume")
	assert.True(t, IsUnknown(err))
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set("Verbosity", "Verbose"))

	snap := s.Snapshot()
	require.NoError(t, s.Set("Verbosity", "Terse"))

	assert.Equal(t, "Verbose", snap.Get("Verbosity"))
	assert.True(t, snap.Is("Verbosity", "Medium", "Verbose"))

	m := snap.Map()
	m["Verbosity"] = "Medium"
	assert.Equal(t, "Verbose", snap.Get("Verbosity"))
}

func TestZeroSnapshotUsesDefaults(t *testing.T) {
	var snap Snapshot
	assert.Equal(t, "Medium", snap.Get("Verbosity"))
	assert.Equal(t, "", snap.Get("Volume"))
	assert.Equal(t, "ClearSpeak", snap.Map()["SpeechStyle"])

	with := snap.With("Verbosity", "Terse")
	assert.Equal(t, "Terse", with.Get("Verbosity"))
	assert.Equal(t, "Medium", snap.Get("Verbosity"))
}

func TestApplyCollectsErrors(t *testing.T) {
	s := NewStore()

	err := s.Apply(map[string]string{
		"Verbosity": "Verbose",
		"Volume":    "11",
		"MathRate":  "fast",
	})
	require.Error(t, err)
	assert.True(t, IsUnknown(err))
	assert.True(t, IsInvalid(err))

	got, _ := s.Get("Verbosity")
	assert.Equal(t, "Verbose", got)
}

func TestErrorHelpersSeeJoinedMembers(t *testing.T) {
	unknown := unknownPreference("Volume")
	invalid := invalidPreference("MathRate", "fast", "not a number")

	for _, err := range []error{
		errors.Join(invalid, unknown),
		errors.Join(unknown, invalid),
		fmt.Errorf("profile: %w", errors.Join(invalid, fmt.Errorf("wrapped: %w", unknown))),
	} {
		assert.True(t, IsUnknown(err), err.Error())
		assert.True(t, IsInvalid(err), err.Error())
	}
	assert.False(t, IsUnknown(nil))
	assert.False(t, IsInvalid(errors.New("plain")))
}

func TestDerivedSeparators(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Set("Language", "nb"))
	dec, _ := s.Get(DecimalSeparators)
	assert.Equal(t, ",", dec)

	require.NoError(t, s.Set("Language", "en"))
	dec, _ = s.Get(DecimalSeparators)
	block, _ := s.Get(BlockSeparators)
	assert.Equal(t, ".", dec)
	assert.Equal(t, ",", block)

	require.NoError(t, s.Set(DecimalSeparator, ","))
	dec, _ = s.Get(DecimalSeparators)
	assert.Equal(t, ",", dec)

	// Explicit separators are not overwritten by a language change.
	require.NoError(t, s.Set("Language", "nb"))
	block, _ = s.Get(BlockSeparators)
	assert.Equal(t, ".", block)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Set("Verbosity", "Terse")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot().Get("Verbosity")
		}()
	}
	wg.Wait()
	got, _ := s.Get("Verbosity")
	assert.Equal(t, "Terse", got)
}
