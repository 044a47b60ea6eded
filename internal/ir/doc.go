// Package ir holds the intermediate representation shared by the rule
// engine and the renderers: the token stream produced by rule templates,
// canonical JSON used for content-addressed cache keys, and the hashing
// helpers built on top of it.
//
// ir imports nothing internal, so every other package can depend on it.
package ir
