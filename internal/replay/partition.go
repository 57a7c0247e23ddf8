package replay

import "github.com/aurora-data/daq.replay/internal/daq"

// PartitionReaders splits a window's records across simulated hardware
// readers. Reader r owns the contiguous channel range
// [r*cpr, (r+1)*cpr) with cpr = ceil(totalChannels/readers), so the ranges
// are disjoint and cover [0, totalChannels); the last reader's range may
// be only partially populated. Relative record order is preserved within
// each partition.
func PartitionReaders(w *Window, readers, totalChannels int) [][]daq.Record {
	cpr := (totalChannels + readers - 1) / readers
	parts := make([][]daq.Record, readers)
	for i := range w.Records {
		r := int(w.Records[i].Channel) / cpr
		parts[r] = append(parts[r], w.Records[i])
	}
	return parts
}
