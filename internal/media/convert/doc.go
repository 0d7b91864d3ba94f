// Package convert turns a raw clip into delivery media with ffmpeg.
//
// Converter validates inputs before any subprocess runs, probes the source,
// enforces duration and size ceilings, and optionally grabs a midpoint
// thumbnail. The ffmpeg boundary sits behind the Encoder interface so tests can
// substitute a fake.
package convert
