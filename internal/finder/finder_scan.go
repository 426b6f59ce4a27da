package finder

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/logging"
	"imgdupes/internal/pipeline"
)

// scan enumerates supported image files below dir. Files directly in dir come
// first, followed by each top-level subdirectory in lexical order; within a
// subtree the order is the lexical walk order. Unreadable directories are
// skipped.
func (f *Finder) scan(ctx context.Context, dir string, reporter *progressReporter, stats *Stats) ([]imagefile.File, error) {
	logger := logging.WithContext(ctx, f.logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil && len(entries) == 0 {
		logSkippedDir(logger, dir, err)
		stats.DirectoriesSkipped++
		reporter.report(scanWeight)
		return nil, nil
	}

	rootFiles := make([]imagefile.File, 0, len(entries))
	subdirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if file, ok := candidate(path, entry); ok {
			rootFiles = append(rootFiles, file)
		}
	}

	tracker := reporter.phase(0, scanWeight, len(subdirs)+1)
	tracker.tick()

	perDir := make([][]imagefile.File, len(subdirs))
	var skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, sub := range subdirs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			files, n, err := f.walk(gctx, logger, sub)
			if err != nil {
				return err
			}
			perDir[i] = files
			skipped.Add(int64(n))
			tracker.tick()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := rootFiles
	for _, chunk := range perDir {
		files = append(files, chunk...)
	}
	stats.DirectoriesSkipped += int(skipped.Load())
	tracker.finish()
	logger.Debug("scan complete",
		logging.Int("files", len(files)),
		logging.Int("subdirectories", len(subdirs)),
		logging.Int64("directories_skipped", skipped.Load()),
	)
	return files, nil
}

// walk collects candidates below dir and returns how many directories could
// not be read. Only cancellation is returned as an error.
func (f *Finder) walk(ctx context.Context, logger *slog.Logger, dir string) ([]imagefile.File, int, error) {
	var files []imagefile.File
	skipped := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d == nil || d.IsDir() {
				logSkippedDir(logger, path, err)
				skipped++
				if d != nil {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if file, ok := candidate(path, d); ok {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, skipped, err
	}
	return files, skipped, nil
}

// candidate accepts regular files with a supported extension. Symlinks and
// special files are ignored.
func candidate(path string, entry fs.DirEntry) (imagefile.File, bool) {
	if !entry.Type().IsRegular() || !imagefile.IsSupported(path) {
		return imagefile.File{}, false
	}
	info, err := entry.Info()
	if err != nil || !info.Mode().IsRegular() {
		return imagefile.File{}, false
	}
	return imagefile.FromInfo(path, info), true
}

func logSkippedDir(logger *slog.Logger, path string, err error) {
	logger.Debug("directory skipped",
		logging.String(logging.FieldEventType, "directory_skipped"),
		logging.String(logging.FieldPath, path),
		logging.Error(enumerationError(path, err)),
	)
}

func enumerationError(path string, err error) error {
	return pipeline.Wrap(pipeline.ErrEnumeration, pipeline.PhaseScan, "read directory", path, err)
}
