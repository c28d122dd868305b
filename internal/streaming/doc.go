// Package streaming serves completed media variants over HTTP partial
// content. Every request must carry a Range header; responses are 206 with
// the usual Content-Range and Accept-Ranges headers. Quality selection falls
// back to the highest-bitrate variant whose file is actually on disk, so a
// missing file reads as "not yet servable" rather than an error.
package streaming
