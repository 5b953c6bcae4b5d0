// Package config loads, normalizes, and validates lectern configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI needs: state directories, catalog and storage credentials,
// spreadsheet coordinates, upload tuning, and the matcher's scoring
// thresholds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
