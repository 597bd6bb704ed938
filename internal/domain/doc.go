// Package domain holds the data shared by every stage of the alert engine:
// theft reports, user notification settings and geofences, match decisions,
// notification intents, dispatch outcomes, and the error markers used to
// classify failures.
//
// Reports, users, and settings are read-only inputs. Decisions and intents
// are ephemeral values produced per invocation; only web intents outlive an
// invocation, as WebNotification rows.
package domain
