// Package strategy defines the pluggable duplicate detection policies.
//
// A Strategy supplies a cheap grouping key used to partition candidates and
// a pairwise predicate applied within each partition. Three variants exist:
// Exact (SHA-256 of file content, grouped by size), Similar (64-bit
// perceptual hash within a Hamming distance, grouped by rough visual bucket),
// and Neural (embedding cosine similarity, grouped by rough visual bucket).
// Each variant owns its caches; Factory wires them from configuration and
// reuses expensive instances.
package strategy

import (
	"context"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/lru"
)

// Strategy is one duplicate detection policy.
type Strategy interface {
	Name() string
	// RequiresPreGrouping reports whether GroupingKey partitions candidates.
	// When false every candidate is compared against every other.
	RequiresPreGrouping() bool
	GroupingKey(ctx context.Context, file imagefile.File) (string, error)
	AreDuplicates(ctx context.Context, a, b imagefile.File) (bool, error)
}

// CacheClearer is implemented by strategies holding per-file caches.
type CacheClearer interface {
	ClearCache()
}

// CacheReporter exposes cache counters for end-of-run logging.
type CacheReporter interface {
	CacheStats() lru.Stats
}
