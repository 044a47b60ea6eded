// Package prefs is the typed preference store.
//
// Every preference has a declared kind, a default and a domain. A Store is
// initialized with the defaults, mutated only through Set, and read by the
// renderers through immutable Snapshots so a conversion sees one consistent
// set of values even if another goroutine changes the store mid-flight.
package prefs
