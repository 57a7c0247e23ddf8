// Package daq defines the detector waveform record model and the on-disk
// run format used as replay input.
package daq

import (
	"encoding/binary"
	"fmt"
)

// SamplePeriodNanos is the hardware digitizer sample period. Every record
// timestamp must be an exact multiple of it.
const SamplePeriodNanos = 10

// Record is one acquisition sample window for one channel.
//
// Data is a fixed-capacity sample buffer; only Data[:Length] is valid.
// Baseline and Area are raw acquisition-side quantities that become stale
// once the waveform is rewritten by baseline normalization.
type Record struct {
	Time     int64 // nanoseconds since the run epoch, monotonic per channel
	Channel  int32
	Baseline int32
	Area     int32
	Length   int32
	Data     []int16
}

// Samples returns the valid portion of the waveform buffer.
func (r *Record) Samples() []int16 {
	return r.Data[:r.Length]
}

// recordHeaderSize is the fixed per-record header in the binary encoding:
// time(8) + channel(4) + baseline(4) + area(4) + length(4).
const recordHeaderSize = 24

// EncodedSize returns the number of bytes AppendRecord will add for r.
func (r *Record) EncodedSize() int {
	return recordHeaderSize + 2*int(r.Length)
}

// AppendRecord appends the little-endian binary encoding of r to buf and
// returns the extended buffer. Only the valid samples are written.
func AppendRecord(buf []byte, r *Record) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Time))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Channel))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Baseline))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Area))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Length))
	for _, s := range r.Data[:r.Length] {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

// EncodeRecords serializes records back to back. This is both the payload
// format of run chunk files and the pre-compression partition format.
func EncodeRecords(records []Record) []byte {
	size := 0
	for i := range records {
		size += records[i].EncodedSize()
	}
	buf := make([]byte, 0, size)
	for i := range records {
		buf = AppendRecord(buf, &records[i])
	}
	return buf
}

// DecodeRecords parses a back-to-back record encoding produced by
// EncodeRecords.
func DecodeRecords(buf []byte) ([]Record, error) {
	var records []Record
	for off := 0; off < len(buf); {
		if len(buf)-off < recordHeaderSize {
			return nil, fmt.Errorf("truncated record header at offset %d", off)
		}
		var r Record
		r.Time = int64(binary.LittleEndian.Uint64(buf[off:]))
		r.Channel = int32(binary.LittleEndian.Uint32(buf[off+8:]))
		r.Baseline = int32(binary.LittleEndian.Uint32(buf[off+12:]))
		r.Area = int32(binary.LittleEndian.Uint32(buf[off+16:]))
		r.Length = int32(binary.LittleEndian.Uint32(buf[off+20:]))
		off += recordHeaderSize

		if r.Length < 0 || len(buf)-off < 2*int(r.Length) {
			return nil, fmt.Errorf("truncated samples at offset %d (length %d)", off, r.Length)
		}
		if r.Length > 0 {
			r.Data = make([]int16, r.Length)
			for i := range r.Data {
				r.Data[i] = int16(binary.LittleEndian.Uint16(buf[off+2*i:]))
			}
			off += 2 * int(r.Length)
		}
		records = append(records, r)
	}
	return records, nil
}
