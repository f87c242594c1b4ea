// Package config loads, normalizes, and validates CherThat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CHERTHAT_BACKEND_URL. The Config type centralizes every knob the relay
// daemon, the collection service, and the CLI need so data directories,
// socket paths, and capture-control timings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
