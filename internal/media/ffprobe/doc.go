// Package ffprobe runs ffprobe and decodes its JSON report.
//
// Inspect returns a Result holding streams and container format. Summary
// reduces a Result to the handful of numbers the clip pipeline checks:
// duration, primary video dimensions, codec, and bitrate.
package ffprobe
