package finder

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/pipeline"
)

func TestProgressReporterDropsRegressions(t *testing.T) {
	var (
		mu     sync.Mutex
		values []float64
	)
	r := newProgressReporter(func(v float64) {
		mu.Lock()
		values = append(values, v)
		mu.Unlock()
	})
	for _, v := range []float64{5, 3, 40, -1, 40, 120, 80} {
		r.report(v)
	}
	r.close(context.Background())
	r.close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			t.Fatalf("sink saw non-increasing sequence %v", values)
		}
	}
	if len(values) == 0 || values[len(values)-1] != 100 {
		t.Fatalf("expected clamped final value 100, got %v", values)
	}
}

func TestProgressReporterWithoutSink(t *testing.T) {
	r := newProgressReporter(nil)
	r.report(50)
	r.phase(0, 10, 2).tick()
	r.close(context.Background())
}

func TestPhaseTrackerScalesIntoWindow(t *testing.T) {
	var got []float64
	r := newProgressReporter(func(v float64) { got = append(got, v) })
	p := r.phase(40, 60, 4)
	p.tick()
	p.tick()
	r.close(context.Background())
	if len(got) == 0 || got[len(got)-1] != 70 {
		t.Fatalf("expected 70 after half the phase, got %v", got)
	}
}

func TestProgressReporterCloseDoesNotWaitForBlockedSink(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	entered := make(chan struct{}, 1)
	r := newProgressReporter(func(float64) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})
	r.report(10)
	<-entered
	r.report(100)

	start := time.Now()
	r.close(context.Background())
	if elapsed := time.Since(start); elapsed > flushGrace+time.Second {
		t.Fatalf("close blocked for %v behind the sink", elapsed)
	}
}

func TestProgressReporterCloseHonorsContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	r := newProgressReporter(func(float64) { <-release })
	r.report(50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		r.close(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return after context cancellation")
	}
}

func TestDisjointSetRootsAreSmallestIndex(t *testing.T) {
	d := newDisjointSet(5)
	d.union(4, 2)
	d.union(2, 3)
	d.union(3, 1)
	for _, i := range []int{1, 2, 3, 4} {
		if root := d.find(i); root != 1 {
			t.Fatalf("find(%d) = %d, want 1", i, root)
		}
	}
	if d.find(0) != 0 {
		t.Fatal("unrelated element joined a set")
	}
}

func TestFailureErrorsCarryMarkers(t *testing.T) {
	cause := errors.New("boom")
	cmp := comparisonError(imagefile.File{Name: "a.png"}, imagefile.File{Name: "b.png"}, cause)
	if !errors.Is(cmp, pipeline.ErrComparison) || !errors.Is(cmp, cause) {
		t.Fatalf("comparison error lost its markers: %v", cmp)
	}
	if !strings.Contains(cmp.Error(), "a.png vs b.png") {
		t.Fatalf("comparison error missing pair: %v", cmp)
	}

	enum := enumerationError("/pics/locked", fs.ErrPermission)
	if !errors.Is(enum, pipeline.ErrEnumeration) || !errors.Is(enum, fs.ErrPermission) {
		t.Fatalf("enumeration error lost its markers: %v", enum)
	}
	if !strings.Contains(enum.Error(), "/pics/locked") {
		t.Fatalf("enumeration error missing path: %v", enum)
	}
}
