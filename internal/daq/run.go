package daq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HeaderFile is the name of the run metadata file inside a run directory.
const HeaderFile = "header.json"

// recordsDir is the subdirectory holding chunked record files.
const recordsDir = "records"

// RecordsPerChunk is the number of records per chunk file written by the
// Recorder. Readers do not depend on it.
const RecordsPerChunk = 4096

// RunHeader describes a recorded run.
type RunHeader struct {
	Version        string `json:"version"`
	RunID          string `json:"run_id"`
	CreatedNs      int64  `json:"created_ns"`
	StartNs        int64  `json:"start_ns"`
	EndNs          int64  `json:"end_ns"`
	Channels       int    `json:"channels"`
	SamplePeriodNs int64  `json:"sample_period_ns"`
	TotalRecords   uint64 `json:"total_records"`
}

// LoadHeader reads and parses header.json from a run directory.
func LoadHeader(runDir string) (RunHeader, error) {
	var h RunHeader
	data, err := os.ReadFile(filepath.Join(runDir, HeaderFile))
	if err != nil {
		return h, fmt.Errorf("failed to read run header: %w", err)
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("failed to parse run header: %w", err)
	}
	return h, nil
}

// Recorder writes records into a run directory: header.json plus
// length-delimited chunk files under records/. Records must be appended in
// time order.
type Recorder struct {
	runDir string
	header RunHeader

	chunk        *os.File
	currentChunk int
	chunkCount   int

	closed bool
}

// NewRecorder creates a run directory and returns a Recorder for it.
func NewRecorder(runDir, runID string, channels int) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Join(runDir, recordsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &Recorder{
		runDir:       runDir,
		currentChunk: -1,
		header: RunHeader{
			Version:        "1.0",
			RunID:          runID,
			CreatedNs:      time.Now().UnixNano(),
			Channels:       channels,
			SamplePeriodNs: SamplePeriodNanos,
		},
	}, nil
}

// Record appends one record to the run.
func (w *Recorder) Record(r *Record) error {
	if w.closed {
		return fmt.Errorf("recorder is closed")
	}

	if w.header.TotalRecords == 0 {
		w.header.StartNs = r.Time
	}
	w.header.EndNs = r.Time

	chunkIdx := int(w.header.TotalRecords / RecordsPerChunk)
	if chunkIdx != w.currentChunk {
		if err := w.rotateChunk(chunkIdx); err != nil {
			return err
		}
	}

	if _, err := w.chunk.Write(AppendRecord(nil, r)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.header.TotalRecords++
	return nil
}

// rotateChunk closes the current chunk file and opens the next one.
func (w *Recorder) rotateChunk(chunkIdx int) error {
	if w.chunk != nil {
		if err := w.chunk.Close(); err != nil {
			return err
		}
	}

	path := filepath.Join(w.runDir, recordsDir, fmt.Sprintf("chunk_%04d.bin", chunkIdx))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	w.chunk = f
	w.currentChunk = chunkIdx
	w.chunkCount++
	return nil
}

// Close finalises the run and writes header.json.
func (w *Recorder) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.chunk != nil {
		if err := w.chunk.Close(); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(w.header, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run header: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.runDir, HeaderFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write run header: %w", err)
	}
	return nil
}

// Header returns the header as recorded so far.
func (w *Recorder) Header() RunHeader {
	return w.header
}
