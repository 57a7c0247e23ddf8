package replay

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aurora-data/daq.replay/internal/fsutil"
)

// EndMarker is the name of the terminal sentinel directory. Its presence
// tells polling consumers that every simulated reader has reached
// end-of-stream.
const EndMarker = "THE_END"

// tempSuffix marks a staging directory that is not yet published.
const tempSuffix = "_temp"

// ChunkWriter publishes compressed partition sets under the big-chunk
// naming convention. Every publication is staged in a _temp directory and
// made visible with a single rename, so a consumer polling the output tree
// never sees a chunk directory with only some reader files present.
//
// Two logical windows collapse onto one externally visible big chunk
// b = windowIndex/2. A main window publishes directly to {b:06d}. A sync
// window publishes the same block set twice, to {b:06d}_post and
// {b+1:06d}_pre, which is how consumers detect that a synchronization
// boundary was crossed between two big chunks.
type ChunkWriter struct {
	fs      fsutil.FileSystem
	dir     string
	readers int
}

// NewChunkWriter creates the output directory and returns a writer for it.
func NewChunkWriter(fs fsutil.FileSystem, dir string, readers int) (*ChunkWriter, error) {
	if readers <= 0 {
		return nil, fmt.Errorf("reader count must be positive, got %d", readers)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ChunkWriter{fs: fs, dir: dir, readers: readers}, nil
}

// chunkDirNames returns the final directory names a window publishes to.
// The mapping is a pure function of the window index.
func chunkDirNames(windowIndex int) []string {
	b := windowIndex / 2
	if windowIndex%2 == 0 {
		return []string{fmt.Sprintf("%06d", b)}
	}
	return []string{
		fmt.Sprintf("%06d_post", b),
		fmt.Sprintf("%06d_pre", b+1),
	}
}

// WriteWindow publishes one window's reader-indexed block set. blocks must
// hold exactly one compressed block per reader.
func (w *ChunkWriter) WriteWindow(windowIndex int, blocks [][]byte) error {
	if len(blocks) != w.readers {
		return fmt.Errorf("window %d: got %d blocks for %d readers", windowIndex, len(blocks), w.readers)
	}
	for _, name := range chunkDirNames(windowIndex) {
		if err := w.publish(name, blocks); err != nil {
			return fmt.Errorf("window %d: %w", windowIndex, err)
		}
	}
	return nil
}

// WriteEnd publishes the terminal sentinel: a THE_END directory holding one
// zero-byte marker file per reader.
func (w *ChunkWriter) WriteEnd() error {
	empty := make([][]byte, w.readers)
	for r := range empty {
		empty[r] = []byte{}
	}
	return w.publish(EndMarker, empty)
}

// publish stages a reader-indexed file set in <name>_temp and atomically
// renames it to its final name. On any failure the temp directory is left
// behind; it never becomes visible under the final name.
func (w *ChunkWriter) publish(name string, blocks [][]byte) error {
	temp := filepath.Join(w.dir, name+tempSuffix)
	final := filepath.Join(w.dir, name)

	if err := w.fs.MkdirAll(temp, 0755); err != nil {
		return fmt.Errorf("failed to stage %s: %w", name, err)
	}
	for r, block := range blocks {
		path := filepath.Join(temp, fmt.Sprintf("%06d", r))
		if err := w.fs.WriteFile(path, block, os.FileMode(0644)); err != nil {
			return fmt.Errorf("failed to write reader %d of %s: %w", r, name, err)
		}
	}
	if err := w.fs.Rename(temp, final); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}
