// Package store provides the SQLite persistence shared by the alert engine.
//
// One database file under paths.data_dir holds three concerns:
//
//   - idempotency_keys: the claim ledger behind the dispatcher's guard
//   - web_notifications: in-app records written by the web channel
//   - users/regions: the local user directory used when no external
//     directory is configured
//
// The database runs in WAL mode with a busy timeout, and writes retry on
// SQLITE_BUSY with a bounded backoff. Schema changes bump the version in
// schema.go; operators delete the database to adopt a new schema.
package store
