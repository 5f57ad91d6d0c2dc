// Package config loads, normalizes, and validates voxcatalog configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves API credentials from either the
// config value or an on-disk key file. The Config type centralizes every knob
// the CLI needs so data directories, source URLs, and external service
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
