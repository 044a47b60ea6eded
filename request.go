package mathcat

import "context"

// Output kinds accepted by Process and Trace.
const (
	OutputSpeech  = "speech"
	OutputBraille = "braille"
)

// Request is a self-contained render: preferences, markup and an optional
// node focus (braille only).
type Request struct {
	MathML      string            `json:"mathml" yaml:"mathml"`
	Preferences map[string]string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	NavHint     string            `json:"nav_hint,omitempty" yaml:"nav_hint,omitempty"`
}

// Result is the outcome of Process.
type Result struct {
	Output    string `json:"output"`
	Canonical string `json:"canonical"`
}

// Process applies req to the session and renders it as output
// (OutputSpeech or OutputBraille). Preferences are applied before the
// markup, so a rejected preference leaves the active expression alone.
func (s *Session) Process(ctx context.Context, output string, req Request) (Result, error) {
	if len(req.Preferences) > 0 {
		if err := s.SetPreferences(req.Preferences); err != nil {
			return Result{}, err
		}
	}
	canonical, err := s.SetMathML(req.MathML)
	if err != nil {
		return Result{}, err
	}
	job, err := s.prepare(output, req.NavHint)
	if err != nil {
		return Result{}, err
	}
	out, err := s.render(ctx, job)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: out, Canonical: canonical}, nil
}
