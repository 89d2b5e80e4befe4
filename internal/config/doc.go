// Package config loads, normalizes, and validates cdrecon configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CDRECON_API_TOKEN. The Config type centralizes every knob the CLI and the
// serve-mode daemon need: carrier column schemas, matching tolerances, report
// formats, and service directories.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
