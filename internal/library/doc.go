// Package library persists media items and their encoded variants.
//
// The store is backed by SQLite and is the single source of truth for item
// state: the transcode pipeline writes milestones here and the notifier and
// streaming server only ever read committed rows. Status values form a small
// state machine (pending → processing → safe|flagged|failed); the store
// exposes one method per milestone so each transition is a single atomic
// update.
//
// Key types:
//   - Item: one uploaded media file with status, progress, and variants
//   - Variant: one encoded quality rendition
//   - Store: SQLite persistence with per-milestone update methods
//   - Layout: deterministic on-disk placement of source and variant files
package library
