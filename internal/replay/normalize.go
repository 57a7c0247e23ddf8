package replay

import "github.com/aurora-data/daq.replay/internal/daq"

// DefaultBaseline is the raw ADC baseline level restored by normalization.
const DefaultBaseline = 16000

// NormalizeBaseline rewrites every waveform in the window in place,
// replacing each valid sample s with k-s. Baseline and Area are zeroed:
// both are derived from the raw waveform and are stale once it is
// rewritten. Must run before partitioning so every reader sees normalized
// payloads.
func NormalizeBaseline(w *Window, k int16) {
	for i := range w.Records {
		normalizeRecord(&w.Records[i], k)
	}
}

func normalizeRecord(r *daq.Record, k int16) {
	data := r.Data[:r.Length]
	for i := range data {
		data[i] = k - data[i]
	}
	r.Baseline = 0
	r.Area = 0
}
