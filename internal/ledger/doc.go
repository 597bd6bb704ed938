// Package ledger is the idempotency guard in front of every externally
// visible side effect.
//
// A delivery first claims its (report, user, channel) key. Exactly one
// concurrent claimant wins; the rest observe the key as a duplicate (already
// consumed) or in flight (a live lease is held elsewhere). The winner either
// completes the key, consuming it for good, or releases it so a redelivery of
// the same event can try again. Claims are leased, so a crashed worker never
// pins a key.
//
// SQLite is the durable implementation. Memory backs dry runs and tests.
package ledger
