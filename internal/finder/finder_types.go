package finder

import (
	"fmt"
	"strings"
	"time"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/pipeline"
)

// Closure selects how matching pairs inside a partition become groups.
type Closure string

const (
	// ClosureRepresentative groups every file with the first unclaimed file
	// it matches. A file joins a group only by matching its representative.
	ClosureRepresentative Closure = "representative"
	// ClosureTransitive groups connected components of the match relation.
	ClosureTransitive Closure = "transitive"
)

// ParseClosure maps a configuration value onto a Closure. Empty selects the
// representative mode.
func ParseClosure(value string) (Closure, error) {
	switch Closure(strings.ToLower(strings.TrimSpace(value))) {
	case "", ClosureRepresentative:
		return ClosureRepresentative, nil
	case ClosureTransitive:
		return ClosureTransitive, nil
	default:
		return "", pipeline.Wrap(pipeline.ErrConfiguration, "", "parse closure", fmt.Sprintf("unknown closure %q", value), nil)
	}
}

// UngroupedLabel names the single partition used when a strategy does not
// pre-group.
const UngroupedLabel = "ungrouped"

// ProgressFunc receives overall completion percentages in [0, 100].
type ProgressFunc func(percent float64)

// Group is a set of files judged duplicates of each other. Files keep scan
// order; the first member is the representative.
type Group struct {
	Label string
	Files []imagefile.File
}

func newGroup(files []imagefile.File) Group {
	return Group{Label: files[0].Name, Files: files}
}

// Count returns the number of member files.
func (g Group) Count() int {
	return len(g.Files)
}

// TotalSize returns the combined size of all members in bytes.
func (g Group) TotalSize() int64 {
	var total int64
	for _, f := range g.Files {
		total += f.Size
	}
	return total
}

// Reclaimable returns the bytes freed by keeping only the first member.
func (g Group) Reclaimable() int64 {
	if len(g.Files) < 2 {
		return 0
	}
	return g.TotalSize() - g.Files[0].Size
}

// Reclaimable sums Group.Reclaimable over groups.
func Reclaimable(groups []Group) int64 {
	var total int64
	for _, g := range groups {
		total += g.Reclaimable()
	}
	return total
}

// DuplicateFiles counts the member files across groups.
func DuplicateFiles(groups []Group) int {
	total := 0
	for _, g := range groups {
		total += g.Count()
	}
	return total
}

// Stats summarizes one run.
type Stats struct {
	Files              int
	DirectoriesSkipped int
	KeyFailures        int
	Partitions         int
	Comparisons        int64
	ComparisonFailures int64
	Groups             int
	DuplicateFiles     int
	Duration           time.Duration
}

// Result is the full outcome of a completed run.
type Result struct {
	RunID    string
	Root     string
	Strategy string
	Groups   []Group
	Stats    Stats
}
