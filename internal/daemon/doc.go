// Package daemon ties the media library, transcode scheduler and event hub
// together behind an HTTP API, and enforces single-instance execution via a
// lock file. The API surface covers uploads, library queries, per-tenant
// event streaming, deletion and range streaming of completed variants.
package daemon
