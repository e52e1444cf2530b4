package drive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// failingReader errors partway through the stream, like a dropped
// connection mid-download.
type failingReader struct {
	prefix io.Reader
	read   bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return r.prefix.Read(p)
	}
	return 0, errors.New("connection reset")
}

func TestWriteAtomicReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	if err := os.WriteFile(path, []byte("old contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := writeAtomic(path, strings.NewReader("new contents")); err != nil {
		t.Fatalf("writeAtomic() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new contents" {
		t.Fatalf("file = %q", got)
	}
}

func TestWriteAtomicFailureLeavesExistingFileIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.db")
	if err := os.WriteFile(path, []byte("old contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := writeAtomic(path, &failingReader{prefix: strings.NewReader("trunc")})
	if err == nil {
		t.Fatal("writeAtomic() must report the stream failure")
	}

	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(got) != "old contents" {
		t.Fatalf("file = %q, a failed download must not truncate it", got)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}
