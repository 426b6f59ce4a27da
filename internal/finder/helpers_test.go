package finder_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"imgdupes/internal/finder"
	"imgdupes/internal/imagefile"
)

// pairStrategy judges files duplicates according to a fixed list of name
// pairs. Files share the grouping key "all" unless keys assigns another one
// or keyErrors lists them.
type pairStrategy struct {
	pregroup  bool
	pairs     map[[2]string]bool
	keys      map[string]string
	keyErrors map[string]bool
	cmpErrors map[[2]string]bool
	panics    map[[2]string]bool
	onCompare func()

	mu       sync.Mutex
	keyCalls int
	compared [][2]string
}

func newPairStrategy(pairs ...[2]string) *pairStrategy {
	s := &pairStrategy{
		pregroup:  true,
		pairs:     make(map[[2]string]bool),
		keys:      make(map[string]string),
		keyErrors: make(map[string]bool),
		cmpErrors: make(map[[2]string]bool),
		panics:    make(map[[2]string]bool),
	}
	for _, p := range pairs {
		s.pairs[ordered(p[0], p[1])] = true
	}
	return s
}

func ordered(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (s *pairStrategy) Name() string              { return "pairs" }
func (s *pairStrategy) RequiresPreGrouping() bool { return s.pregroup }

func (s *pairStrategy) GroupingKey(ctx context.Context, file imagefile.File) (string, error) {
	s.mu.Lock()
	s.keyCalls++
	s.mu.Unlock()
	if s.keyErrors[file.Name] {
		return "", errors.New("unreadable " + file.Name)
	}
	if key, ok := s.keys[file.Name]; ok {
		return key, nil
	}
	return "all", nil
}

func (s *pairStrategy) AreDuplicates(ctx context.Context, a, b imagefile.File) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := ordered(a.Name, b.Name)
	s.mu.Lock()
	s.compared = append(s.compared, key)
	hook := s.onCompare
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if s.panics[key] {
		panic("decoder exploded")
	}
	if s.cmpErrors[key] {
		return false, errors.New("compare failed")
	}
	return s.pairs[key], nil
}

func (s *pairStrategy) comparedPairs() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.compared)
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

// names renders groups as sorted member name lists for order-insensitive
// comparison.
func names(groups []finder.Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		members := make([]string, 0, len(g.Files))
		for _, f := range g.Files {
			members = append(members, f.Name)
		}
		sort.Strings(members)
		out = append(out, strings.Join(members, ","))
	}
	sort.Strings(out)
	return out
}

// progressLog records sink values.
type progressLog struct {
	mu     sync.Mutex
	values []float64
}

func (p *progressLog) sink(v float64) {
	p.mu.Lock()
	p.values = append(p.values, v)
	p.mu.Unlock()
}

func (p *progressLog) snapshot() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.values)
}
