package replay

import (
	"testing"

	"github.com/aurora-data/daq.replay/internal/daq"
	"github.com/google/go-cmp/cmp"
)

func TestPartitionReaders(t *testing.T) {
	// 10 channels over 4 readers: ceil(10/4)=3 channels per reader, so the
	// last reader covers only channel 9.
	var records []daq.Record
	for i := 0; i < 30; i++ {
		records = append(records, rec(int64(i)*10, int32(i%10)))
	}
	w := &Window{Records: records}

	parts := PartitionReaders(w, 4, 10)
	if len(parts) != 4 {
		t.Fatalf("got %d partitions, want 4", len(parts))
	}

	ranges := [][2]int32{{0, 3}, {3, 6}, {6, 9}, {9, 12}}
	total := 0
	for r, part := range parts {
		for _, record := range part {
			if record.Channel < ranges[r][0] || record.Channel >= ranges[r][1] {
				t.Errorf("reader %d got channel %d, range [%d, %d)",
					r, record.Channel, ranges[r][0], ranges[r][1])
			}
		}
		total += len(part)
	}
	if total != len(records) {
		t.Errorf("partitions hold %d records, window had %d", total, len(records))
	}

	// Record order within a partition matches window order.
	var reader0Times []int64
	for _, record := range w.Records {
		if record.Channel < 3 {
			reader0Times = append(reader0Times, record.Time)
		}
	}
	var gotTimes []int64
	for _, record := range parts[0] {
		gotTimes = append(gotTimes, record.Time)
	}
	if diff := cmp.Diff(reader0Times, gotTimes); diff != "" {
		t.Errorf("reader 0 order mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionReadersEvenSplit(t *testing.T) {
	var records []daq.Record
	for ch := int32(0); ch < 8; ch++ {
		records = append(records, rec(0, ch))
	}
	parts := PartitionReaders(&Window{Records: records}, 4, 8)
	for r, part := range parts {
		if len(part) != 2 {
			t.Errorf("reader %d holds %d records, want 2", r, len(part))
		}
	}
}

func TestPartitionReadersSingleReader(t *testing.T) {
	records := []daq.Record{rec(0, 0), rec(10, 5), rec(20, 2)}
	parts := PartitionReaders(&Window{Records: records}, 1, 6)
	if len(parts) != 1 || len(parts[0]) != 3 {
		t.Fatalf("single reader should hold every record, got %d partitions", len(parts))
	}
	if diff := cmp.Diff(records, parts[0]); diff != "" {
		t.Errorf("partition mismatch (-want +got):\n%s", diff)
	}
}
