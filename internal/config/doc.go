// Package config loads and validates clipforge configuration.
//
// Configuration lives in a TOML file (default ~/.config/clipforge/config.toml,
// or ./clipforge.toml in the working directory). Load applies defaults first,
// then file values, then normalizes paths and validates the result.
//
// Key entry points:
//   - Default: repository defaults
//   - Load: locate, parse, normalize, and validate a config file
//   - Config.EnsureDirectories: create the media and log directories
package config
