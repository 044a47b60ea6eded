package engine

import "github.com/nlbdev/MathCAT/internal/mathml"

// cycleKey identifies one rule application.
type cycleKey struct {
	rule string
	node *mathml.Node
}

// CycleDetector tracks the rule applications currently on the render
// stack.
//
// A template that selects the node it is rendering (x: ".") re-enters the
// same rule on the same node; the second entry is a cycle. Applications
// are removed when their template finishes, so the same rule may render the
// same node again later in the walk (e.g. through two $arg references).
type CycleDetector struct {
	active map[cycleKey]bool
}

// NewCycleDetector creates an empty detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{active: make(map[cycleKey]bool)}
}

// Enter records that rule is being applied to n. It returns false when the
// same application is already in progress.
func (c *CycleDetector) Enter(rule string, n *mathml.Node) bool {
	k := cycleKey{rule, n}
	if c.active[k] {
		return false
	}
	c.active[k] = true
	return true
}

// Leave removes the application recorded by Enter.
func (c *CycleDetector) Leave(rule string, n *mathml.Node) {
	delete(c.active, cycleKey{rule, n})
}

// Depth returns the number of applications in progress.
func (c *CycleDetector) Depth() int { return len(c.active) }
