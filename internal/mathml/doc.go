// Package mathml is the markup tree model and canonicalizer.
//
// Parse turns MathML text into a canonical tree: redundant grouping is
// collapsed, parentheses are grouped, implicit multiplication and function
// application become explicit invisible operators, and intent annotations
// are parsed and checked. The canonical tree is what the rule engine
// matches against; it is never shared between sessions.
//
// Nodes expose an xpath.NodeNavigator so rule files can use XPath for
// predicates and child selection, and a small set of structural
// classifiers (Classify) for the disambiguation decisions that are awkward
// to express in XPath.
package mathml
