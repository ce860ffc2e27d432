package engine

import "github.com/dshills/contextrank/pkg/types"

// Progress stages
const (
	StageAnalyze = "analyze"
	StageEmbed   = "embed"
)

// ProgressReporter observes long-running operations. Report may be called
// from several goroutines and must not block for long.
type ProgressReporter interface {
	Report(p types.Progress)
}

// ProgressFunc adapts a function to ProgressReporter
type ProgressFunc func(types.Progress)

// Report calls f
func (f ProgressFunc) Report(p types.Progress) {
	f(p)
}

// ProgressChannel forwards progress to a channel, dropping updates the
// receiver is not ready for. Completion is signalled by the call
// returning, not by a final update.
type ProgressChannel chan types.Progress

// Report sends p without blocking
func (c ProgressChannel) Report(p types.Progress) {
	select {
	case c <- p:
	default:
	}
}

type noProgress struct{}

func (noProgress) Report(types.Progress) {}

func reporterOrNoop(r ProgressReporter) ProgressReporter {
	if r == nil {
		return noProgress{}
	}
	return r
}
