package replay

import (
	"context"
	"io"
	"testing"

	"github.com/aurora-data/daq.replay/internal/daq"
)

// sliceSource yields pre-built batches, like a run directory would.
type sliceSource struct {
	header  daq.RunHeader
	batches [][]daq.Record
	pos     int
}

func (s *sliceSource) Header() daq.RunHeader { return s.header }

func (s *sliceSource) Next(ctx context.Context) ([]daq.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.batches) {
		return nil, io.EOF
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

func rec(t int64, ch int32) daq.Record {
	return daq.Record{Time: t, Channel: ch, Baseline: 16010, Length: 2, Data: []int16{15990, 15800}}
}

// batched splits records into batches of n to exercise the chunker's
// buffering across source reads.
func batched(records []daq.Record, n int) [][]daq.Record {
	var out [][]daq.Record
	for len(records) > n {
		out = append(out, records[:n])
		records = records[n:]
	}
	if len(records) > 0 {
		out = append(out, records)
	}
	return out
}

func drain(t *testing.T, c *Chunker) []*Window {
	t.Helper()
	var windows []*Window
	for {
		w, err := c.Next(context.Background())
		if err == io.EOF {
			return windows
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		windows = append(windows, w)
	}
}

// TestChunkerScenario: 4100ns of data with a 2000ns main window and a
// 200ns sync window yields main(0-2000), sync(2000-2200),
// main(2200-4200), with the third window holding everything left when the
// source exhausts at 4100ns.
func TestChunkerScenario(t *testing.T) {
	var records []daq.Record
	for ts := int64(0); ts <= 4100; ts += 100 {
		records = append(records, rec(ts, 0))
	}
	src := &sliceSource{batches: batched(records, 7)}

	windows := drain(t, NewChunker(src, 2000, 200))
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}

	want := []struct {
		kind       WindowKind
		start, end int64
		count      int
	}{
		{KindMain, 0, 2000, 20},   // 0..1900
		{KindSync, 2000, 2200, 2}, // 2000, 2100
		{KindMain, 2200, 4200, 20},
	}
	for i, w := range windows {
		if w.Index != i {
			t.Errorf("window %d: Index = %d", i, w.Index)
		}
		if w.Kind != want[i].kind || w.Start != want[i].start || w.End != want[i].end {
			t.Errorf("window %d = %s [%d, %d), want %s [%d, %d)",
				i, w.Kind, w.Start, w.End, want[i].kind, want[i].start, want[i].end)
		}
		if len(w.Records) != want[i].count {
			t.Errorf("window %d has %d records, want %d", i, len(w.Records), want[i].count)
		}
	}

	// The sequence is not restartable.
	if _, err := NewChunker(src, 2000, 200).Next(context.Background()); err != io.EOF {
		t.Errorf("drained source should yield io.EOF, got %v", err)
	}
}

func TestChunkerKindsAlternate(t *testing.T) {
	var records []daq.Record
	for ts := int64(0); ts <= 20000; ts += 70 {
		records = append(records, rec(ts, 0))
	}
	src := &sliceSource{batches: batched(records, 13)}

	windows := drain(t, NewChunker(src, 1000, 100))
	if len(windows) < 4 {
		t.Fatalf("expected several windows, got %d", len(windows))
	}
	for i, w := range windows {
		want := KindMain
		if i%2 == 1 {
			want = KindSync
		}
		if w.Kind != want {
			t.Errorf("window %d kind = %s, want %s", i, w.Kind, want)
		}
	}
}

// TestChunkerEmptyWindows checks that windows with no records are still
// emitted when the source has records beyond them: the pacer counts
// windows, not records.
func TestChunkerEmptyWindows(t *testing.T) {
	records := []daq.Record{rec(0, 0), rec(5000, 0)}
	src := &sliceSource{batches: [][]daq.Record{records}}

	windows := drain(t, NewChunker(src, 2000, 200))

	// main [0,2000), sync [2000,2200), main [2200,4200), sync [4200,4400),
	// main [4400,6400)
	counts := []int{1, 0, 0, 0, 1}
	if len(windows) != len(counts) {
		t.Fatalf("got %d windows, want %d", len(windows), len(counts))
	}
	for i, w := range windows {
		if len(w.Records) != counts[i] {
			t.Errorf("window %d has %d records, want %d", i, len(w.Records), counts[i])
		}
	}
}

func TestChunkerEmptySource(t *testing.T) {
	src := &sliceSource{}
	if _, err := NewChunker(src, 1000, 100).Next(context.Background()); err != io.EOF {
		t.Errorf("empty source: err = %v, want io.EOF", err)
	}
}

func TestChunkerWindowStartsAtFirstRecord(t *testing.T) {
	records := []daq.Record{rec(730, 0), rec(1000, 0), rec(2800, 0)}
	src := &sliceSource{batches: [][]daq.Record{records}}

	windows := drain(t, NewChunker(src, 2000, 200))
	if windows[0].Start != 730 || windows[0].End != 2730 {
		t.Errorf("first window = [%d, %d), want [730, 2730)", windows[0].Start, windows[0].End)
	}
	if len(windows[0].Records) != 2 {
		t.Errorf("first window has %d records, want 2", len(windows[0].Records))
	}
}
