// Package transcode drives the processing pipeline for uploaded media.
//
// Each media item runs through one Job: probe → three encodes (high, medium,
// low) → moderation → terminal state. Stages within a job are strictly
// sequential; every milestone is persisted to the library store before the
// matching event is published, so subscribers only ever see committed state.
// A failure at any stage converges to the failed terminal status without
// rolling back variants that already completed, and is never retried
// automatically.
//
// The Scheduler owns job execution: a bounded worker pool with FIFO
// admission and a per-item guard so an id never has more than one live job.
package transcode
