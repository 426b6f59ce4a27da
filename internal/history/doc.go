// Package history keeps a SQLite record of duplicate search runs.
//
// Only run metadata is stored: root, strategy, timing, counts, and the
// terminal outcome. Per-file hashes and embeddings are never persisted.
package history
