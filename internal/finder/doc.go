// Package finder locates duplicate images below a directory.
//
// A run has three phases. Scan enumerates supported image files, fanning out
// over the top-level subdirectories. Group partitions the candidates by the
// strategy's grouping key and drops partitions holding a single file.
// Compare walks each partition with the strategy's pairwise predicate and
// emits groups of two or more members. Partitions are compared concurrently
// up to the configured worker count.
//
// Progress is weighted across the phases (scan 10%, group 30%, compare 60%)
// and delivered to the caller's sink from a single goroutine. Reports are
// coalesced, never block the workers, and never decrease.
//
// Per-file failures are logged and isolated: a file whose grouping key
// cannot be computed is left out, and a comparison that fails counts as "not
// a duplicate". Cancellation aborts the whole run and returns an error that
// matches pipeline.ErrCancelled and the context error.
package finder
