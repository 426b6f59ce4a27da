package finder

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/logging"
	"imgdupes/internal/pipeline"
)

// comparer holds the per-run state shared by partition workers.
type comparer struct {
	finder      *Finder
	logger      *slog.Logger
	tracker     *phaseTracker
	comparisons atomic.Int64
	failures    atomic.Int64
}

// compare runs the closure algorithm over every partition. Output follows
// partition order, and groups within a partition follow their
// representatives' scan order.
func (f *Finder) compare(ctx context.Context, partitions []partition, reporter *progressReporter, stats *Stats) ([]Group, error) {
	total := 0
	for _, p := range partitions {
		total += len(p.files)
	}
	c := &comparer{
		finder:  f,
		logger:  logging.WithContext(ctx, f.logger),
		tracker: reporter.phase(scanWeight+groupWeight, compareWeight, total),
	}

	results := make([][]Group, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, p := range partitions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var (
				groups []Group
				err    error
			)
			if f.closure == ClosureTransitive {
				groups, err = c.connected(gctx, p.files)
			} else {
				groups, err = c.claim(gctx, p.files)
			}
			if err != nil {
				return err
			}
			results[i] = groups
			return nil
		})
	}
	err := g.Wait()
	stats.Comparisons = c.comparisons.Load()
	stats.ComparisonFailures = c.failures.Load()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(partitions))
	for _, chunk := range results {
		groups = append(groups, chunk...)
	}
	c.tracker.finish()
	return groups, nil
}

// claim implements representative grouping. Each unclaimed file in turn
// becomes a representative and claims every later unclaimed file it matches.
// A file already claimed is never compared again, so membership depends on
// the first representative that matched it.
func (c *comparer) claim(ctx context.Context, files []imagefile.File) ([]Group, error) {
	claimed := make([]bool, len(files))
	var groups []Group
	for i := range files {
		c.tracker.tick()
		if claimed[i] {
			continue
		}
		members := []imagefile.File{files[i]}
		for j := i + 1; j < len(files); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if claimed[j] {
				continue
			}
			if c.match(ctx, files[i], files[j]) {
				members = append(members, files[j])
				claimed[j] = true
			}
		}
		if len(members) > 1 {
			claimed[i] = true
			groups = append(groups, newGroup(members))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// connected implements transitive grouping: every connected component of
// the match relation with two or more files is a group. Pairs already in the
// same component are not compared.
func (c *comparer) connected(ctx context.Context, files []imagefile.File) ([]Group, error) {
	sets := newDisjointSet(len(files))
	for i := range files {
		c.tracker.tick()
		for j := i + 1; j < len(files); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if sets.find(i) == sets.find(j) {
				continue
			}
			if c.match(ctx, files[i], files[j]) {
				sets.union(i, j)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]int, 0)
	members := make(map[int][]imagefile.File)
	for i, file := range files {
		root := sets.find(i)
		if _, ok := members[root]; !ok {
			order = append(order, root)
		}
		members[root] = append(members[root], file)
	}
	var groups []Group
	for _, root := range order {
		if len(members[root]) > 1 {
			groups = append(groups, newGroup(members[root]))
		}
	}
	return groups, nil
}

// match evaluates the strategy predicate. Errors and panics count as a
// mismatch and are logged; the run continues.
func (c *comparer) match(ctx context.Context, a, b imagefile.File) bool {
	c.comparisons.Add(1)
	same, err := c.evaluate(ctx, a, b)
	if err == nil {
		return same
	}
	if ctx.Err() != nil {
		return false
	}
	c.failures.Add(1)
	err = comparisonError(a, b, err)
	logging.WarnWithContext(c.logger, "comparison failed; pair treated as distinct",
		"comparison_failed",
		logging.String(logging.FieldPath, a.Path),
		logging.String("other_path", b.Path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that both files are readable images"),
		logging.String(logging.FieldImpact, "pair is not reported as duplicate"),
	)
	return false
}

func comparisonError(a, b imagefile.File, err error) error {
	return pipeline.Wrap(pipeline.ErrComparison, pipeline.PhaseCompare, "are duplicates", a.Name+" vs "+b.Name, err)
}

func (c *comparer) evaluate(ctx context.Context, a, b imagefile.File) (same bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("comparison panic: %v", r)
		}
	}()
	return c.finder.strategy.AreDuplicates(ctx, a, b)
}

// disjointSet is a union-find over indices with path halving. The root of a
// set is always its smallest index.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
}
