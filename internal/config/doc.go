// Package config loads, normalizes, and validates docintake configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DOCINTAKE_NTFY_TOPIC. The Config type centralizes every knob the pipeline and
// CLI need: stage timeouts, duplicate thresholds, the conflict cutoff date, the
// routing directory (approvers, candidate groups, security list), and
// notification delivery.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
