// Command theftalert matches stolen-vehicle reports against user alert
// preferences and geofences and dispatches the resulting notifications.
//
// `theftalert serve` runs the daemon with HTTP and optional AMQP ingress.
// `theftalert process <report.json>` handles one report-created event in the
// foreground, optionally as a dry run. The directory, inbox and ledger
// command groups inspect and maintain the local SQLite database.
package main
