// Package daemon coordinates the long-running theftalert process.
//
// It wires the report processor into the HTTP ingress and, when configured,
// the AMQP consumer, and gives them a single lifecycle. A flock on the data
// directory prevents two daemons from sharing one SQLite ledger.
//
// Keep orchestration logic here: matching and dispatch live in their own
// packages while the daemon focuses on startup, shutdown and status.
package daemon
