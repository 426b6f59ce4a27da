// Package config loads, normalizes, and validates the imgdupes TOML
// configuration.
//
// Defaults cover every field so a missing file is not an error. Load expands
// "~" in path fields, applies environment fallbacks, and rejects out of range
// thresholds before any scan begins.
package config
