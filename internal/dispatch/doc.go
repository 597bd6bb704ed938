// Package dispatch executes notification intents.
//
// Each intent is guarded by its idempotency key before any side effect: the
// dispatcher claims the key, performs the delivery under a per-channel
// timeout, then completes or releases the key depending on how the delivery
// ended. Successful sends and definitive rejections consume the key.
// Timeouts, cancellations and uncertain gateway errors release it so a
// redelivered event can retry.
//
// Users are fanned out on a bounded worker pool and a user's channels run
// concurrently. A failing intent never aborts its siblings.
package dispatch
