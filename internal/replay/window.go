// Package replay implements the chunked replay engine: it re-segments a
// recorded record stream into alternating data and synchronization time
// windows, restores per-record payload fields, fans each window out across
// simulated reader channels, compresses each partition, and publishes the
// result to the filesystem handoff protocol at a controllable pace.
package replay

import (
	"fmt"

	"github.com/aurora-data/daq.replay/internal/daq"
)

// WindowKind distinguishes long data-taking windows from the short
// synchronization gaps between them.
type WindowKind int

const (
	// KindMain is a data-taking window.
	KindMain WindowKind = iota
	// KindSync is a synchronization/calibration gap window.
	KindSync
)

func (k WindowKind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindSync:
		return "sync"
	default:
		return fmt.Sprintf("WindowKind(%d)", int(k))
	}
}

// kindForIndex returns the kind of the window at the given position in the
// emitted sequence. Kinds alternate strictly, starting with main.
func kindForIndex(index int) WindowKind {
	if index%2 == 0 {
		return KindMain
	}
	return KindSync
}

// Window is one time-bounded slice of the record stream. Records are
// non-decreasing in time and fall in [Start, End), except that the final
// window of a run holds everything left when the source exhausts.
type Window struct {
	Index   int
	Kind    WindowKind
	Start   int64 // nanoseconds, inclusive
	End     int64 // nanoseconds, exclusive
	Records []daq.Record
}

// Duration returns the nominal span of the window in nanoseconds.
func (w *Window) Duration() int64 {
	return w.End - w.Start
}
