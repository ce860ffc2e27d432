package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/pkg/types"
)

// barReporter renders engine progress as a terminal progress bar, one bar
// per stage
type barReporter struct {
	mu    sync.Mutex
	w     io.Writer
	bar   *progressbar.ProgressBar
	stage string
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{w: w}
}

func (r *barReporter) Report(p types.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil || r.stage != p.Stage {
		if r.bar != nil {
			_ = r.bar.Finish()
		}
		r.stage = p.Stage
		r.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetDescription(p.Stage),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionThrottle(65*time.Millisecond),
		)
	}
	_ = r.bar.Set(p.Done)
}

// Finish clears the current bar
func (r *barReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// progressFor returns the reporter for a command, or nil when progress
// output is disabled
func progressFor(opts *globalOptions, w io.Writer) (engine.ProgressReporter, func()) {
	if opts.json || opts.noProgress {
		return nil, func() {}
	}
	bar := newBarReporter(w)
	return bar, bar.Finish
}
