package mathcat

import (
	"context"
	"time"
)

// Cache stores rendered output by render key. Keys cover the rule set,
// the canonical markup, the preference snapshot and the focus, so a hit
// is always the output a fresh render would produce.
//
// Implemented by internal/store (SQLite) and internal/adapters/redis.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, ruleSet, output string) error
}

// Metrics receives render observations.
// Implemented by internal/metrics.
type Metrics interface {
	// ObserveRender records one render. code is "" on success.
	ObserveRender(kind, ruleSet, code string, d time.Duration)
	// ObserveCache records a cache lookup.
	ObserveCache(kind string, hit bool)
}
