// Package config loads, normalizes, and validates cdmedia configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CDMEDIA_CDRDAO and
// CDMEDIA_DEVICE environment fallbacks. Always obtain settings through this
// package so downstream code receives sanitized paths and clear validation
// errors.
package config
