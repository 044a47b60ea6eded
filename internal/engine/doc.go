// Package engine implements the MathCAT rule matching engine.
//
// The engine turns a canonical tree into a token stream by applying the
// rules of one rule set under one preference snapshot.
//
// RESOLUTION:
//
// Stage 1 (authoritative): a node with an intent is rendered by the first
// satisfied intent rule for the intent name, in declaration order. When
// the rule set has no rule for the name, IntentErrorRecovery decides:
// Error fails with UNKNOWN_INTENT, IgnoreIntent falls through.
//
// Stage 2 (heuristic): the rules for the node's tag are tried by descending
// specificity (priority, then number of conditions), then declaration
// order. The first satisfied rule wins; another satisfied rule of equal
// specificity is an AMBIGUOUS_RULE error.
//
// Rows: a template selection yielding several nodes is rendered as a row.
// At each index the run rules (sibling patterns) are tried first, so a run
// such as ", …" at the end of a list can replace the nodes it covers.
//
// TERMINATION:
//
// A rule re-entering itself on the same node is CYCLE_DETECTED; a render
// applying more than the max steps quota is STEPS_EXCEEDED.
//
// Rendering is synchronous and deterministic: no goroutines, no maps
// iterated in output order, no wall-clock reads.
package engine
