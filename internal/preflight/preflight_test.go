package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 1); !r.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got %s", r.Detail)
	}
	if r := CheckFreeSpace("space", dir, ^uint64(0)); r.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		1 << 30: "1.0 GiB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRunAllReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Converter.FFmpegBinary = "clipforge-missing-ffmpeg"
	cfg.Converter.FFprobeBinary = "clipforge-missing-ffprobe"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if !byName["Output directory"].Passed {
		t.Fatalf("expected output directory to pass: %#v", byName["Output directory"])
	}
	if byName["FFmpeg"].Passed {
		t.Fatal("expected missing ffmpeg to fail")
	}
	if byName["FFprobe"].Passed {
		t.Fatal("expected missing ffprobe to fail")
	}
}
