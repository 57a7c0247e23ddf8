package replay

import (
	"context"
	"io"
	"time"

	"github.com/aurora-data/daq.replay/internal/daq"
)

// Chunker splits a time-sorted record stream into alternating main and
// sync windows. The sequence is lazy, finite and single-pass: each call to
// Next consumes source input and cannot be rewound.
//
// The first window spans [t0, t0+mainDur) where t0 is the timestamp of the
// first record. A window is emitted only once a record at or past its end
// boundary has been seen, or the source is exhausted, so a window always
// holds every record in its span even when the source delivers them across
// several batches. Empty interior windows are emitted: the pacer tracks
// wall-clock cadence by window, not by record count.
type Chunker struct {
	src     daq.Source
	mainDur int64
	syncDur int64

	pending []daq.Record
	start   int64
	index   int
	started bool
	srcDone bool
	done    bool
}

// NewChunker creates a Chunker over src. Both durations must be positive;
// Config.Validate enforces this before a Chunker is built.
func NewChunker(src daq.Source, mainDur, syncDur time.Duration) *Chunker {
	return &Chunker{
		src:     src,
		mainDur: mainDur.Nanoseconds(),
		syncDur: syncDur.Nanoseconds(),
	}
}

// Next returns the next window, or io.EOF after the final window of the
// run has been emitted.
func (c *Chunker) Next(ctx context.Context) (*Window, error) {
	if c.done {
		return nil, io.EOF
	}

	if !c.started {
		// Pull until the first record arrives; its timestamp anchors the
		// window grid.
		for len(c.pending) == 0 {
			if err := c.pull(ctx); err != nil {
				return nil, err
			}
			if c.srcDone {
				break
			}
		}
		if len(c.pending) == 0 {
			c.done = true
			return nil, io.EOF
		}
		c.start = c.pending[0].Time
		c.started = true
	}

	dur := c.mainDur
	if kindForIndex(c.index) == KindSync {
		dur = c.syncDur
	}
	end := c.start + dur

	// Keep pulling until a record at or beyond the window boundary shows
	// up, or the source runs dry.
	for !c.srcDone && (len(c.pending) == 0 || c.pending[len(c.pending)-1].Time < end) {
		if err := c.pull(ctx); err != nil {
			return nil, err
		}
	}

	cut := len(c.pending)
	for i, r := range c.pending {
		if r.Time >= end {
			cut = i
			break
		}
	}

	w := &Window{
		Index:   c.index,
		Kind:    kindForIndex(c.index),
		Start:   c.start,
		End:     end,
		Records: c.pending[:cut:cut],
	}
	c.pending = c.pending[cut:]

	if c.srcDone && len(c.pending) == 0 {
		c.done = true
	}
	c.index++
	c.start = end
	return w, nil
}

// pull appends one source batch to the pending buffer.
func (c *Chunker) pull(ctx context.Context) error {
	batch, err := c.src.Next(ctx)
	if err == io.EOF {
		c.srcDone = true
		return nil
	}
	if err != nil {
		return err
	}
	c.pending = append(c.pending, batch...)
	return nil
}
