// Package ffmpeg invokes the ffmpeg binary to produce streaming-friendly
// renditions of a source file at fixed quality profiles.
//
// Encoding progress is read from ffmpeg's machine-readable -progress output
// and surfaced through a callback as a monotonically non-decreasing
// percentage. On any failure the adapter removes its partial output so a
// caller never observes an incomplete rendition at the output path.
package ffmpeg
