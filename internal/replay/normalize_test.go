package replay

import (
	"testing"

	"github.com/aurora-data/daq.replay/internal/daq"
)

func TestNormalizeBaseline(t *testing.T) {
	w := &Window{
		Records: []daq.Record{
			{Time: 0, Channel: 0, Baseline: 16020, Area: -300, Length: 3,
				Data: []int16{15990, 15100, 16020, 7777}}, // 4th sample beyond Length
			{Time: 100, Channel: 1, Baseline: 15980, Area: 42, Length: 1,
				Data: []int16{16000}},
		},
	}

	NormalizeBaseline(w, 16000)

	want0 := []int16{10, 900, -20}
	for i, s := range w.Records[0].Samples() {
		if s != want0[i] {
			t.Errorf("record 0 sample %d = %d, want %d", i, s, want0[i])
		}
	}
	if w.Records[0].Data[3] != 7777 {
		t.Errorf("sample beyond Length was touched: %d", w.Records[0].Data[3])
	}
	if got := w.Records[1].Data[0]; got != 0 {
		t.Errorf("record 1 sample = %d, want 0", got)
	}

	for i, r := range w.Records {
		if r.Baseline != 0 || r.Area != 0 {
			t.Errorf("record %d: baseline=%d area=%d, want both zeroed", i, r.Baseline, r.Area)
		}
	}
}

func TestNormalizeBaselineEmptyWindow(t *testing.T) {
	w := &Window{}
	NormalizeBaseline(w, 16000) // must not panic
}
