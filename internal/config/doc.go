// Package config loads, normalizes, and validates clipforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPFORGE_FFMPEG. The Config type centralizes every knob the daemon and CLI
// need, allowing data/output directories, converter binaries, and default
// trigger behaviour to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
