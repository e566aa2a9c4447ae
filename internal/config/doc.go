// Package config loads, normalizes, and validates Zaphod configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI and pipeline need, from the archive security ceilings to the
// classifier keyword tables, so components receive explicit values instead of
// reaching for package-level constants.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
