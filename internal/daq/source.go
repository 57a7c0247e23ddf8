package daq

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source yields time-sorted batches of records for one run. Next returns
// io.EOF once the run is exhausted; the sequence is single-pass and not
// restartable.
type Source interface {
	Header() RunHeader
	Next(ctx context.Context) ([]Record, error)
}

// DirSource reads a run directory produced by a Recorder, one chunk file
// per Next call.
type DirSource struct {
	header RunHeader
	chunks []string
	pos    int
}

// OpenDirSource opens a run directory for reading.
func OpenDirSource(runDir string) (*DirSource, error) {
	header, err := LoadHeader(runDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(runDir, recordsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list record chunks: %w", err)
	}

	var chunks []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "chunk_") {
			continue
		}
		chunks = append(chunks, filepath.Join(runDir, recordsDir, e.Name()))
	}
	// Chunk names are zero padded so lexical order is record order.
	sort.Strings(chunks)

	return &DirSource{header: header, chunks: chunks}, nil
}

// Header returns the run header.
func (s *DirSource) Header() RunHeader {
	return s.header
}

// Next returns the records of the next chunk file, or io.EOF when the run
// is exhausted.
func (s *DirSource) Next(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}

	path := s.chunks[s.pos]
	s.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record chunk %s: %w", filepath.Base(path), err)
	}
	records, err := DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt record chunk %s: %w", filepath.Base(path), err)
	}
	return records, nil
}
