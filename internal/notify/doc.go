// Package notify delivers progress and status events to per-tenant
// subscribers.
//
// Delivery is best-effort and fire-and-forget: publishing never blocks the
// pipeline, a tenant without subscribers is not an error, and a slow
// subscriber loses events rather than stalling anyone. The persisted media
// item remains the source of truth; events only mirror committed state.
package notify
