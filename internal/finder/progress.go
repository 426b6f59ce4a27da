package finder

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Phase weights in percent of the whole run.
const (
	scanWeight    = 10.0
	groupWeight   = 30.0
	compareWeight = 60.0
)

// flushGrace bounds how long close waits for a busy sink to take the final
// value. A sink still running after that keeps its goroutine until it returns.
const flushGrace = 100 * time.Millisecond

// progressReporter forwards the highest reported value to a sink from one
// goroutine. report never blocks: values published while the sink is busy
// collapse into the latest one.
type progressReporter struct {
	sink   ProgressFunc
	bits   atomic.Uint64
	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newProgressReporter(sink ProgressFunc) *progressReporter {
	r := &progressReporter{sink: sink}
	if sink == nil {
		return r
	}
	r.signal = make(chan struct{}, 1)
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop()
	return r
}

func (r *progressReporter) loop() {
	defer close(r.done)
	delivered := -1.0
	deliver := func() {
		if v := r.current(); v > delivered {
			delivered = v
			r.sink(v)
		}
	}
	for {
		select {
		case <-r.signal:
			deliver()
		case <-r.stop:
			deliver()
			return
		}
	}
}

func (r *progressReporter) current() float64 {
	return math.Float64frombits(r.bits.Load())
}

// report publishes percent if it exceeds every earlier value.
func (r *progressReporter) report(percent float64) {
	if r == nil || r.sink == nil || math.IsNaN(percent) {
		return
	}
	percent = min(max(percent, 0), 100)
	for {
		old := r.bits.Load()
		if percent <= math.Float64frombits(old) && old != 0 {
			return
		}
		if r.bits.CompareAndSwap(old, math.Float64bits(percent)) {
			break
		}
	}
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// close asks the sink goroutine to deliver the latest value and exit. It
// waits at most flushGrace, or until ctx ends, for that to happen.
func (r *progressReporter) close(ctx context.Context) {
	if r == nil || r.sink == nil {
		return
	}
	r.once.Do(func() {
		close(r.stop)
		timer := time.NewTimer(flushGrace)
		defer timer.Stop()
		select {
		case <-r.done:
		case <-timer.C:
		case <-ctx.Done():
		}
	})
}

// phaseTracker maps completed units of one phase onto overall progress.
type phaseTracker struct {
	reporter *progressReporter
	start    float64
	weight   float64
	total    int64
	done     atomic.Int64
}

func (r *progressReporter) phase(start, weight float64, total int) *phaseTracker {
	return &phaseTracker{reporter: r, start: start, weight: weight, total: int64(total)}
}

func (p *phaseTracker) tick() {
	n := p.done.Add(1)
	if p.total <= 0 {
		return
	}
	p.reporter.report(p.start + p.weight*float64(n)/float64(p.total))
}

func (p *phaseTracker) finish() {
	p.reporter.report(p.start + p.weight)
}
