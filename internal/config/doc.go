// Package config loads, normalizes, and validates bslocal configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the BROWSERSTACK_ACCESS_KEY environment fallback.
// The [tunnel.options] table is passed through to the tunnel binary as flags.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
