package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

type fakeEncoder struct {
	mu         sync.Mutex
	probe      ProbeInfo
	probeErr   error
	outputSize int
	runErr     error
	thumbErr   error
	block      bool
	blockProbe bool
	calls      [][]string
}

func (f *fakeEncoder) Probe(ctx context.Context, _ string) (ProbeInfo, error) {
	if f.blockProbe {
		<-ctx.Done()
		return ProbeInfo{}, ctx.Err()
	}
	return f.probe, f.probeErr
}

func (f *fakeEncoder) Run(ctx context.Context, args []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	out := args[len(args)-1]
	if strings.HasSuffix(out, ".jpg") {
		if f.thumbErr != nil {
			return f.thumbErr
		}
		return os.WriteFile(out, []byte("jpeg"), 0o644)
	}
	if f.runErr != nil {
		return f.runErr
	}
	return os.WriteFile(out, make([]byte, f.outputSize), 0o644)
}

func (f *fakeEncoder) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.mkv")
	testsupport.WriteFile(t, path, 4096)
	return path
}

func TestConvertSuccessWithThumbnail(t *testing.T) {
	enc := &fakeEncoder{probe: ProbeInfo{Duration: 12, Width: 1920, Height: 1080}, outputSize: 2048}
	conv := New(enc)
	input := writeInput(t)
	outDir := t.TempDir()

	result, err := conv.Convert(context.Background(), Options{
		InputPath: input,
		OutputDir: outDir,
		Format:    "mp4",
		Quality:   "medium",
		Thumbnail: true,
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.OutputPath != filepath.Join(outDir, "raw.mp4") {
		t.Fatalf("unexpected output path %q", result.OutputPath)
	}
	if result.FileSize != 2048 || result.Duration != 12 || result.Format != FormatMP4 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ThumbnailPath != filepath.Join(outDir, "raw.jpg") {
		t.Fatalf("unexpected thumbnail %q", result.ThumbnailPath)
	}
	if enc.runCount() != 2 {
		t.Fatalf("expected encode and thumbnail runs, got %d", enc.runCount())
	}
	thumbArgs := strings.Join(enc.calls[1], " ")
	if !strings.Contains(thumbArgs, "-ss 6.000") {
		t.Fatalf("thumbnail should be taken at the midpoint: %s", thumbArgs)
	}
}

func TestConvertInputNotFound(t *testing.T) {
	enc := &fakeEncoder{}
	_, err := New(enc).Convert(context.Background(), Options{InputPath: filepath.Join(t.TempDir(), "missing.mkv")})
	if KindOf(err) != KindInputNotFound {
		t.Fatalf("expected INPUT_NOT_FOUND, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatal("expected not-found marker")
	}
	if enc.runCount() != 0 {
		t.Fatal("no subprocess expected")
	}
}

func TestConvertUnsupportedFormat(t *testing.T) {
	enc := &fakeEncoder{}
	_, err := New(enc).Convert(context.Background(), Options{InputPath: writeInput(t), Format: "avi"})
	if KindOf(err) != KindUnsupportedFormat {
		t.Fatalf("expected UNSUPPORTED_FORMAT, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
}

func TestConvertProbeFailed(t *testing.T) {
	enc := &fakeEncoder{probeErr: errors.New("moov atom not found")}
	_, err := New(enc).Convert(context.Background(), Options{InputPath: writeInput(t)})
	if KindOf(err) != KindProbeFailed {
		t.Fatalf("expected PROBE_FAILED, got %v", err)
	}
	if enc.runCount() != 0 {
		t.Fatal("no encode expected after probe failure")
	}
}

func TestConvertDurationExceededSkipsSubprocess(t *testing.T) {
	enc := &fakeEncoder{probe: ProbeInfo{Duration: 200}}
	_, err := New(enc).Convert(context.Background(), Options{InputPath: writeInput(t), MaxDuration: 180})
	if KindOf(err) != KindDurationExceeded {
		t.Fatalf("expected DURATION_EXCEEDED, got %v", err)
	}
	if enc.runCount() != 0 {
		t.Fatalf("expected no subprocess, got %d runs", enc.runCount())
	}
}

func TestConvertSizeExceededDeletesOutput(t *testing.T) {
	enc := &fakeEncoder{probe: ProbeInfo{Duration: 10}, outputSize: 2 * 1024 * 1024}
	outDir := t.TempDir()
	_, err := New(enc).Convert(context.Background(), Options{
		InputPath: writeInput(t),
		OutputDir: outDir,
		MaxSizeMB: 1,
		Thumbnail: true,
	})
	if KindOf(err) != KindSizeExceeded {
		t.Fatalf("expected SIZE_EXCEEDED, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(outDir, "raw.mp4")); !os.IsNotExist(statErr) {
		t.Fatalf("oversize output should be deleted, stat err=%v", statErr)
	}
	if enc.runCount() != 1 {
		t.Fatal("thumbnail must not run for a rejected output")
	}
}

func TestConvertFailureKeepsStderr(t *testing.T) {
	enc := &fakeEncoder{probe: ProbeInfo{Duration: 10}, runErr: errors.New("ffmpeg: exit status 1: Unknown encoder")}
	_, err := New(enc).Convert(context.Background(), Options{InputPath: writeInput(t), OutputDir: t.TempDir()})
	if KindOf(err) != KindConversionFailed {
		t.Fatalf("expected CONVERSION_FAILED, got %v", err)
	}
	if IsTimeout(err) {
		t.Fatal("plain failure should not be tagged as timeout")
	}
	if !strings.Contains(err.Error(), "Unknown encoder") {
		t.Fatalf("expected stderr in message, got %v", err)
	}
}

func TestConvertTimeoutTagged(t *testing.T) {
	enc := &fakeEncoder{probe: ProbeInfo{Duration: 10}, block: true}
	conv := New(enc, WithTimeouts(20*time.Millisecond, time.Second))
	_, err := conv.Convert(context.Background(), Options{InputPath: writeInput(t), OutputDir: t.TempDir()})
	if KindOf(err) != KindConversionFailed || !IsTimeout(err) {
		t.Fatalf("expected timed-out CONVERSION_FAILED, got %v", err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatal("expected timeout marker")
	}
}

func TestConvertInspectTimeoutTagged(t *testing.T) {
	enc := &fakeEncoder{blockProbe: true}
	conv := New(enc, WithTimeouts(time.Second, time.Second), WithProbeTimeout(20*time.Millisecond))

	opts := Options{InputPath: writeInput(t), OutputDir: t.TempDir()}
	done := make(chan error, 1)
	go func() {
		_, err := conv.Convert(context.Background(), opts)
		done <- err
	}()

	select {
	case err := <-done:
		if KindOf(err) != KindProbeFailed || !IsTimeout(err) {
			t.Fatalf("expected timed-out PROBE_FAILED, got %v", err)
		}
		if !errors.Is(err, services.ErrTimeout) {
			t.Fatal("expected timeout marker")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Convert did not return after the inspect deadline")
	}
	if enc.runCount() != 0 {
		t.Fatalf("expected no encode after probe timeout, got %d runs", enc.runCount())
	}
}

func TestInspectTimeoutDefaultsToThumbnailTimeout(t *testing.T) {
	enc := &fakeEncoder{blockProbe: true}
	conv := New(enc, WithTimeouts(time.Second, 20*time.Millisecond))

	opts := Options{InputPath: writeInput(t), OutputDir: t.TempDir()}
	done := make(chan error, 1)
	go func() {
		_, err := conv.Convert(context.Background(), opts)
		done <- err
	}()

	select {
	case err := <-done:
		if KindOf(err) != KindProbeFailed || !IsTimeout(err) {
			t.Fatalf("expected timed-out PROBE_FAILED, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Convert did not return after the inspect deadline")
	}
}

func TestThumbnailFailureIsNonFatal(t *testing.T) {
	enc := &fakeEncoder{probe: ProbeInfo{Duration: 8}, outputSize: 10, thumbErr: errors.New("no frame")}
	result, err := New(enc).Convert(context.Background(), Options{InputPath: writeInput(t), OutputDir: t.TempDir(), Thumbnail: true})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.ThumbnailPath != "" {
		t.Fatalf("expected no thumbnail, got %q", result.ThumbnailPath)
	}
}

func TestTrim(t *testing.T) {
	enc := &fakeEncoder{outputSize: 100}
	conv := New(enc)
	output := filepath.Join(t.TempDir(), "work", "cut.mkv")
	if err := conv.Trim(context.Background(), writeInput(t), output, 100, 60); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	args := strings.Join(enc.calls[0], " ")
	if !strings.Contains(args, "-ss 100.000") || !strings.Contains(args, "-t 60.000") || !strings.Contains(args, "-c copy") {
		t.Fatalf("unexpected trim args: %s", args)
	}
	if err := conv.Trim(context.Background(), writeInput(t), output, 5, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty window, got %v", err)
	}
}
