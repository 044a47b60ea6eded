package harness

import "github.com/nlbdev/MathCAT"

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name string `json:"name"`

	// Output is the rendered text. Empty when the render failed.
	Output string `json:"output,omitempty"`

	// Error is the error code of a failed render.
	Error string `json:"error,omitempty"`

	// Trace lists the rule applications in order.
	Trace []mathcat.TraceStep `json:"trace"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every case met its expectations and assertions.
	Pass bool `json:"pass"`

	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Case returns the result of the named case.
func (r *Result) Case(name string) (CaseResult, bool) {
	for _, c := range r.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return CaseResult{}, false
}
