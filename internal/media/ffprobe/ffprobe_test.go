package ffprobe

import (
	"math"
	"testing"
)

const sampleReport = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001", "bit_rate": "4000000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.500000", "size": "6250000", "bit_rate": "4128000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseAndSummary(t *testing.T) {
	result, err := Parse([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	summary := result.Summary()
	if summary.Duration != 12.5 {
		t.Fatalf("unexpected duration %v", summary.Duration)
	}
	if summary.Width != 1920 || summary.Height != 1080 || summary.Codec != "h264" {
		t.Fatalf("unexpected video fields %+v", summary)
	}
	if summary.BitRate != 4128000 || summary.SizeBytes != 6250000 {
		t.Fatalf("unexpected container fields %+v", summary)
	}
	if !summary.HasAudio {
		t.Fatal("expected audio stream")
	}
	if math.Abs(summary.FrameRate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", summary.FrameRate)
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw JSON to be retained")
	}
}

func TestDurationFallsBackToVideoStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "3.2", BitRate: "1000"}},
		Format:  Format{Duration: "N/A"},
	}
	summary := result.Summary()
	if summary.Duration != 3.2 {
		t.Fatalf("expected stream duration, got %v", summary.Duration)
	}
	if summary.BitRate != 1000 {
		t.Fatalf("expected stream bitrate fallback, got %d", summary.BitRate)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 || result.BitRate() != 0 {
		t.Fatalf("expected zero size and bitrate, got %d %d", result.SizeBytes(), result.BitRate())
	}
	if result.Summary().Duration != 0 {
		t.Fatal("summary should clamp unparsable duration to zero")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
