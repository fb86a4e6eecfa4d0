// Package config loads, normalizes, and validates aircheck configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AIRCHECK_AREA_ID. The Config type centralizes every knob the recorder
// needs: service endpoints, handshake and retry tuning, encoder settings,
// and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
