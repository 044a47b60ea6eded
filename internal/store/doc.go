// Package store provides a SQLite-backed render cache.
//
// Each row maps a render key (see ir.RenderKey) to the text or braille it
// produced, together with the ID of the rule set used. Because the key
// covers every input of a render, rows never change once written.
//
// # Critical Patterns
//
// Idempotent writes
//   - key is the PRIMARY KEY; Put uses ON CONFLICT(key) DO NOTHING
//   - Concurrent writers racing on one key store the same output
//
// Logical insertion order
//   - seq is a logical counter (MAX(seq)+1), NEVER a timestamp
//   - Prune keeps the newest rows by seq
//
// Deterministic listing
//   - RuleSets orders by rule_set COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for a competing writer
//   - Single connection: SQLite allows one writer
package store
