// Package config loads, normalizes, and validates theftalert configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// THEFTALERT_DATABASE_URL and the per-channel gateway tokens. The Config type
// centralizes every knob the engine, the daemon, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, bounded worker counts, and clear validation errors.
package config
