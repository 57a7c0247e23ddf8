package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aurora-data/daq.replay/internal/fsutil"
)

func TestChunkDirNames(t *testing.T) {
	tests := []struct {
		index int
		want  []string
	}{
		{0, []string{"000000"}},
		{1, []string{"000000_post", "000001_pre"}},
		{2, []string{"000001"}},
		{3, []string{"000001_post", "000002_pre"}},
		{14, []string{"000007"}},
		{15, []string{"000007_post", "000008_pre"}},
	}
	for _, tt := range tests {
		got := chunkDirNames(tt.index)
		if len(got) != len(tt.want) {
			t.Errorf("chunkDirNames(%d) = %v, want %v", tt.index, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("chunkDirNames(%d) = %v, want %v", tt.index, got, tt.want)
			}
		}
	}
}

func TestChunkWriterMainWindow(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w, err := NewChunkWriter(fs, "out", 3)
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}

	blocks := [][]byte{[]byte("r0"), []byte("r1"), []byte("r2")}
	if err := w.WriteWindow(0, blocks); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}

	for r := 0; r < 3; r++ {
		path := filepath.Join("out", "000000", fmt.Sprintf("%06d", r))
		data, err := fs.ReadFile(path)
		if err != nil {
			t.Fatalf("reader file %s missing: %v", path, err)
		}
		if string(data) != fmt.Sprintf("r%d", r) {
			t.Errorf("%s = %q", path, data)
		}
	}
	if fs.Exists("out/000000_temp") {
		t.Error("staging directory left behind after publication")
	}
}

func TestChunkWriterSyncWindowPublishesTwice(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w, err := NewChunkWriter(fs, "out", 2)
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}

	blocks := [][]byte{[]byte("alpha"), []byte("beta")}
	if err := w.WriteWindow(3, blocks); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}

	// Window 3 straddles big chunks 1 and 2 with identical payloads.
	for _, dir := range []string{"000001_post", "000002_pre"} {
		for r, want := range []string{"alpha", "beta"} {
			data, err := fs.ReadFile(filepath.Join("out", dir, fmt.Sprintf("%06d", r)))
			if err != nil {
				t.Fatalf("%s reader %d: %v", dir, r, err)
			}
			if string(data) != want {
				t.Errorf("%s reader %d = %q, want %q", dir, r, data, want)
			}
		}
	}
}

func TestChunkWriterBlockCountMismatch(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w, err := NewChunkWriter(fs, "out", 2)
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	if err := w.WriteWindow(0, [][]byte{[]byte("only-one")}); err == nil {
		t.Error("WriteWindow accepted a short block set")
	}
}

func TestChunkWriterEnd(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w, err := NewChunkWriter(fs, "out", 4)
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	if err := w.WriteEnd(); err != nil {
		t.Fatalf("WriteEnd: %v", err)
	}

	entries, err := fs.ReadDir(filepath.Join("out", EndMarker))
	if err != nil {
		t.Fatalf("sentinel directory: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("sentinel holds %d files, want 4", len(entries))
	}
	for r, e := range entries {
		if e.Name() != fmt.Sprintf("%06d", r) {
			t.Errorf("sentinel file %d = %q", r, e.Name())
		}
		info, err := e.Info()
		if err != nil {
			t.Fatalf("Info: %v", err)
		}
		if info.Size() != 0 {
			t.Errorf("sentinel file %q has %d bytes, want 0", e.Name(), info.Size())
		}
	}
}

// faultFS wraps a FileSystem and fails selected operations, simulating a
// crash between staging and publication.
type faultFS struct {
	fsutil.FileSystem
	failRename    bool
	writesAllowed int
}

func (f *faultFS) Rename(oldpath, newpath string) error {
	if f.failRename {
		return fmt.Errorf("injected rename failure")
	}
	return f.FileSystem.Rename(oldpath, newpath)
}

func (f *faultFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	if f.writesAllowed == 0 {
		return fmt.Errorf("injected write failure")
	}
	f.writesAllowed--
	return f.FileSystem.WriteFile(name, data, perm)
}

// TestChunkWriterAtomicity: a failure at any point before the rename must
// leave nothing visible under the final name.
func TestChunkWriterAtomicity(t *testing.T) {
	t.Run("rename fails", func(t *testing.T) {
		mem := fsutil.NewMemoryFileSystem()
		w, err := NewChunkWriter(&faultFS{FileSystem: mem, failRename: true, writesAllowed: -1}, "out", 2)
		if err != nil {
			t.Fatalf("NewChunkWriter: %v", err)
		}
		if err := w.WriteWindow(0, [][]byte{[]byte("a"), []byte("b")}); err == nil {
			t.Fatal("WriteWindow should surface the rename failure")
		}
		if mem.Exists("out/000000") {
			t.Error("chunk visible under final name despite failed rename")
		}
	})

	t.Run("write fails mid staging", func(t *testing.T) {
		mem := fsutil.NewMemoryFileSystem()
		w, err := NewChunkWriter(&faultFS{FileSystem: mem, writesAllowed: 1}, "out", 2)
		if err != nil {
			t.Fatalf("NewChunkWriter: %v", err)
		}
		if err := w.WriteWindow(0, [][]byte{[]byte("a"), []byte("b")}); err == nil {
			t.Fatal("WriteWindow should surface the write failure")
		}
		if mem.Exists("out/000000") {
			t.Error("partially staged chunk visible under final name")
		}
	})
}
