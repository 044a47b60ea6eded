// Package rules loads, validates and indexes speech and braille rule files.
//
// A rule file is a YAML document declaring one rule set (a speech style for
// a locale, or a braille code) or a fragment shared through include. Every
// document is checked against an embedded CUE schema, decoded strictly and
// then compiled: XPath expressions are compiled once, classifier and table
// names are resolved, and semantic errors are collected with E2xx codes.
//
// Compiled rule sets are immutable and safe to share between sessions.
package rules
