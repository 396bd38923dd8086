// Package config loads, normalizes, and validates the ledaps TOML
// configuration.
//
// Values are decoded over Default(), environment fallbacks (LEDAPS_AUX_DIR,
// ANC_PATH, BIN, optionally from a .env file) fill unset paths, and Validate
// rejects unusable settings before any command runs.
package config
