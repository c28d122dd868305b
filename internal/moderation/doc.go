// Package moderation classifies finished renditions as safe or flagged.
//
// The classification algorithm itself is external: the HTTP classifier posts
// the rendition to a configured service, while the simulated classifier
// derives a deterministic verdict from the file contents for installs without
// a moderation backend. Both satisfy Classifier; callers treat the verdict as
// opaque and mandatory; a classifier error fails the pipeline rather than
// releasing unmoderated content.
package moderation
