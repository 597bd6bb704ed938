// Package engine drives one report-created event from receipt to summary.
//
// OnReportCreated walks the invocation through a fixed sequence of states:
// received, validated, scanning, dispatching and completed. Reports that are
// malformed or not Active end as a completed no-op. Otherwise the directory
// is streamed and each user runs through preference resolution, message
// composition and guarded dispatch on a bounded worker pool.
//
// Only a failure to enumerate the directory escapes as an error, and only
// after in-flight users have settled. Per-intent failures and unreadable
// regions are reported on the summary instead.
package engine
