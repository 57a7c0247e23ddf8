package replay

import (
	"context"
	"time"

	"github.com/aurora-data/daq.replay/internal/monitoring"
)

// PaceMode selects how publication is timed. The mode is fixed for the
// lifetime of a run.
type PaceMode int

const (
	// PaceImmediate publishes each window as soon as it is ready.
	PaceImmediate PaceMode = iota
	// PaceRealtime matches the original acquisition cadence: each window's
	// nominal duration is its wall-clock budget.
	PaceRealtime
	// PaceFixedRate targets a byte throughput. The controller buffers all
	// compressed windows in a pre-pass, then replays them against the
	// per-window budget rawBytes/targetRate.
	PaceFixedRate
)

func (m PaceMode) String() string {
	switch m {
	case PaceImmediate:
		return "immediate"
	case PaceRealtime:
		return "realtime"
	case PaceFixedRate:
		return "fixed-rate"
	default:
		return "unknown"
	}
}

// Pacer decides when a window may be handed to the writer. A budget overrun
// (production took longer than the window's wall-clock allowance) is a
// non-fatal pacing miss: it is counted and logged so an operator can judge
// whether the emitter keeps up, but never aborts the run.
//
// Sleeps select on the context, so shutdown and the cumulative-size stop
// condition interrupt a sleeping pacer promptly instead of waiting out the
// remaining budget.
type Pacer struct {
	mode       PaceMode
	mainDur    time.Duration
	syncDur    time.Duration
	targetRate float64 // bytes per second, fixed-rate mode only

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	start  time.Time
	misses int
}

// NewPacer builds a pacer for the given mode.
func NewPacer(mode PaceMode, mainDur, syncDur time.Duration, targetRate float64) *Pacer {
	return &Pacer{
		mode:       mode,
		mainDur:    mainDur,
		syncDur:    syncDur,
		targetRate: targetRate,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// BeginWindow marks the start of work on the next window. The time between
// BeginWindow and WaitPublish counts against the window's budget.
func (p *Pacer) BeginWindow() {
	p.start = p.now()
}

// WaitPublish blocks until the window at windowIndex may be published.
// rawBytes is the window's uncompressed partition payload size, used by
// fixed-rate budgeting.
func (p *Pacer) WaitPublish(ctx context.Context, windowIndex int, rawBytes int64) error {
	var budget time.Duration
	switch p.mode {
	case PaceImmediate:
		return nil
	case PaceRealtime:
		budget = p.mainDur
		if kindForIndex(windowIndex) == KindSync {
			budget = p.syncDur
		}
	case PaceFixedRate:
		budget = time.Duration(float64(rawBytes) / p.targetRate * float64(time.Second))
	}

	remaining := budget - p.now().Sub(p.start)
	if remaining <= 0 {
		p.misses++
		monitoring.Logf("pacing miss on window %d: over budget by %v", windowIndex, -remaining)
		return nil
	}
	return p.sleep(ctx, remaining)
}

// Misses returns the number of windows whose production overran their
// wall-clock budget.
func (p *Pacer) Misses() int {
	return p.misses
}

// sleepContext sleeps for d or until the context is done, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
