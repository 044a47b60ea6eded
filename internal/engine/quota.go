package engine

// QuotaEnforcer counts rule applications for one render and enforces a
// maximum.
//
// Cycle detection catches a rule re-entering itself; the quota catches
// templates that are acyclic but explode (deep nesting, long rows of
// run-rule retries). Together they guarantee termination.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer with the given limit.
// A limit <= 0 disables the check.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and reports whether the limit still
// holds.
func (q *QuotaEnforcer) Check() bool {
	q.current++
	return q.maxSteps <= 0 || q.current <= q.maxSteps
}

// Current returns the number of steps taken.
func (q *QuotaEnforcer) Current() int { return q.current }

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int { return q.maxSteps }
