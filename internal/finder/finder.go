package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"imgdupes/internal/config"
	"imgdupes/internal/logging"
	"imgdupes/internal/pipeline"
	"imgdupes/internal/strategy"
)

// Options tunes a Finder.
type Options struct {
	// Workers bounds directory walkers, key computations, and partition
	// comparisons. Zero selects the CPU count.
	Workers int
	Closure Closure
	Logger  *slog.Logger
}

// Finder runs duplicate searches with one strategy. A Finder may serve
// concurrent runs.
type Finder struct {
	strategy strategy.Strategy
	workers  int
	closure  Closure
	logger   *slog.Logger

	mu        sync.Mutex
	lastStats Stats
}

// New constructs a Finder around s.
func New(s strategy.Strategy, opts Options) *Finder {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	closure := opts.Closure
	if closure == "" {
		closure = ClosureRepresentative
	}
	return &Finder{
		strategy: s,
		workers:  max(workers, 1),
		closure:  closure,
		logger:   logging.NewComponentLogger(opts.Logger, "finder"),
	}
}

// FindDuplicates searches root and returns the duplicate groups.
func (f *Finder) FindDuplicates(ctx context.Context, root string, progress ProgressFunc) ([]Group, error) {
	result, err := f.Run(ctx, root, progress)
	if err != nil {
		return nil, err
	}
	return result.Groups, nil
}

// LastStats returns the statistics of the most recently finished run.
func (f *Finder) LastStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastStats
}

// Run searches root and returns the groups with run metadata. A run ID
// already present in ctx is reused; otherwise one is generated. On
// cancellation no partial result is returned.
func (f *Finder) Run(ctx context.Context, root string, progress ProgressFunc) (*Result, error) {
	if f.strategy == nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "run", "no strategy configured", nil)
	}
	dir, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	runID, ok := pipeline.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = pipeline.WithRunID(ctx, runID)
	}
	ctx = pipeline.WithStrategy(ctx, f.strategy.Name())
	logger := logging.WithContext(ctx, f.logger)

	reporter := newProgressReporter(progress)
	defer reporter.close(ctx)
	reporter.report(0)

	started := time.Now()
	stats := Stats{}
	logger.Info("duplicate search started",
		logging.String(logging.FieldPath, dir),
		logging.Int("workers", f.workers),
		logging.String("closure", string(f.closure)),
	)

	groups, err := f.run(ctx, dir, reporter, &stats)
	stats.Duration = time.Since(started)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || pipeline.IsCancelled(err) {
			if ctxErr == nil {
				ctxErr = err
			}
			err = pipeline.Cancelled(ctxErr)
			logger.Info("duplicate search cancelled",
				logging.Duration("elapsed", stats.Duration),
				logging.Int("files", stats.Files),
			)
		} else {
			logger.Error("duplicate search failed", logging.Error(err))
		}
		f.storeStats(stats)
		return nil, err
	}

	stats.Groups = len(groups)
	stats.DuplicateFiles = DuplicateFiles(groups)
	f.storeStats(stats)
	reporter.report(100)
	logger.Info("duplicate search completed",
		logging.Int("files", stats.Files),
		logging.Int("groups", stats.Groups),
		logging.Int("duplicate_files", stats.DuplicateFiles),
		logging.Int64("comparisons", stats.Comparisons),
		logging.Int64("comparison_failures", stats.ComparisonFailures),
		logging.Int("key_failures", stats.KeyFailures),
		logging.Int("directories_skipped", stats.DirectoriesSkipped),
		logging.Duration("elapsed", stats.Duration),
	)
	if cr, ok := f.strategy.(strategy.CacheReporter); ok {
		cache := cr.CacheStats()
		logger.Debug("strategy cache",
			logging.Uint64("hits", cache.Hits),
			logging.Uint64("misses", cache.Misses),
			logging.Uint64("evictions", cache.Evictions),
			logging.Int("entries", cache.Count),
		)
	}

	return &Result{
		RunID:    runID,
		Root:     dir,
		Strategy: f.strategy.Name(),
		Groups:   groups,
		Stats:    stats,
	}, nil
}

func (f *Finder) run(ctx context.Context, dir string, reporter *progressReporter, stats *Stats) ([]Group, error) {
	files, err := f.scan(pipeline.WithPhase(ctx, pipeline.PhaseScan), dir, reporter, stats)
	if err != nil {
		return nil, err
	}
	stats.Files = len(files)
	if len(files) == 0 {
		return []Group{}, nil
	}

	partitions, err := f.group(pipeline.WithPhase(ctx, pipeline.PhaseGroup), files, reporter, stats)
	if err != nil {
		return nil, err
	}
	stats.Partitions = len(partitions)
	if len(partitions) == 0 {
		return []Group{}, nil
	}

	return f.compare(pipeline.WithPhase(ctx, pipeline.PhaseCompare), partitions, reporter, stats)
}

func (f *Finder) storeStats(stats Stats) {
	f.mu.Lock()
	f.lastStats = stats
	f.mu.Unlock()
}

// ValidateRoot normalizes root to an absolute directory path and checks that
// it can be listed. Failures match pipeline.ErrInvalidInput.
func ValidateRoot(root string) (string, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return "", pipeline.Wrap(pipeline.ErrInvalidInput, pipeline.PhaseScan, "validate root", "directory path is empty", nil)
	}
	abs, err := config.ExpandPath(trimmed)
	if err != nil {
		return "", pipeline.Wrap(pipeline.ErrInvalidInput, pipeline.PhaseScan, "validate root", "resolve path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", pipeline.Wrap(pipeline.ErrInvalidInput, pipeline.PhaseScan, "validate root", fmt.Sprintf("directory not found: %s", abs), err)
		}
		return "", pipeline.Wrap(pipeline.ErrInvalidInput, pipeline.PhaseScan, "validate root", abs, err)
	}
	if !info.IsDir() {
		return "", pipeline.Wrap(pipeline.ErrInvalidInput, pipeline.PhaseScan, "validate root", fmt.Sprintf("not a directory: %s", abs), nil)
	}
	if err := unix.Access(abs, unix.R_OK|unix.X_OK); err != nil {
		return "", pipeline.Wrap(pipeline.ErrInvalidInput, pipeline.PhaseScan, "validate root", fmt.Sprintf("directory not readable: %s", abs), err)
	}
	return abs, nil
}
