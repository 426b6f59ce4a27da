package finder

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/logging"
)

// partition is a set of candidates sharing one grouping key, in scan order.
type partition struct {
	key   string
	files []imagefile.File
}

// group splits files by grouping key and keeps partitions with at least two
// members, ordered by first appearance. Files whose key fails are dropped.
func (f *Finder) group(ctx context.Context, files []imagefile.File, reporter *progressReporter, stats *Stats) ([]partition, error) {
	logger := logging.WithContext(ctx, f.logger)
	tracker := reporter.phase(scanWeight, groupWeight, len(files))

	if !f.strategy.RequiresPreGrouping() {
		tracker.finish()
		if len(files) < 2 {
			return nil, nil
		}
		return []partition{{key: UngroupedLabel, files: files}}, nil
	}

	keys := make([]string, len(files))
	valid := make([]bool, len(files))
	var failures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key, err := f.groupingKey(gctx, files[i])
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures.Add(1)
				logging.WarnWithContext(logger, "grouping key failed; file excluded",
					"grouping_key_failed",
					logging.String(logging.FieldPath, files[i].Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that the file is a readable, well-formed image"),
					logging.String(logging.FieldImpact, "file is not compared"),
				)
			} else {
				keys[i] = key
				valid[i] = true
			}
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

	index := make(map[string]int)
	var all []partition
	for i, file := range files {
		if !valid[i] {
			continue
		}
		pos, ok := index[keys[i]]
		if !ok {
			pos = len(all)
			index[keys[i]] = pos
			all = append(all, partition{key: keys[i]})
		}
		all[pos].files = append(all[pos].files, file)
	}
	partitions := all[:0]
	for _, p := range all {
		if len(p.files) > 1 {
			partitions = append(partitions, p)
		}
	}

	stats.KeyFailures = int(failures.Load())
	tracker.finish()
	logger.Debug("grouping complete",
		logging.Int("keys", len(all)),
		logging.Int("partitions", len(partitions)),
		logging.Int("key_failures", stats.KeyFailures),
	)
	return partitions, nil
}

func (f *Finder) groupingKey(ctx context.Context, file imagefile.File) (key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grouping key panic: %v", r)
		}
	}()
	return f.strategy.GroupingKey(ctx, file)
}
