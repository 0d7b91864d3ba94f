package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, along with its parent directories, holding exactly
// size bytes of filler. Sizes below one are bumped to one so the file is
// never empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	block := bytes.Repeat([]byte{'C'}, 32*1024)
	for left := max(size, 1); left > 0; {
		n := min(left, int64(len(block)))
		if _, err := f.Write(block[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		left -= n
	}
}
