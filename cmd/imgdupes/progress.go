package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"imgdupes/internal/logging"
	"imgdupes/internal/pipeline"
)

// progressDisplay renders finder progress as a terminal bar, or as sampled
// log lines when stderr is not a terminal. Its update method is called from
// a single goroutine.
type progressDisplay struct {
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func newProgressDisplay(w io.Writer, logger *slog.Logger, enabled bool) *progressDisplay {
	d := &progressDisplay{logger: logger}
	if !enabled {
		return d
	}
	if isTerminal(w) {
		d.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Searching"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		return d
	}
	d.sampler = logging.NewProgressSampler(10)
	return d
}

// update is passed to the finder as its progress sink.
func (d *progressDisplay) update(percent float64) {
	switch {
	case d.bar != nil:
		_ = d.bar.Set(int(percent))
	case d.sampler != nil:
		phase := phaseForPercent(percent)
		if d.sampler.ShouldLog(percent, phase) {
			d.logger.Info("search progress",
				logging.String(logging.FieldPhase, phase),
				logging.Float64("percent", percent),
			)
		}
	}
}

// finish tears the bar down. A completed run leaves it at 100%.
func (d *progressDisplay) finish(completed bool) {
	if d.bar == nil {
		return
	}
	if completed {
		_ = d.bar.Finish()
		return
	}
	_ = d.bar.Clear()
}

func phaseForPercent(percent float64) string {
	switch {
	case percent < 10:
		return pipeline.PhaseScan
	case percent < 40:
		return pipeline.PhaseGroup
	default:
		return pipeline.PhaseCompare
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
