// Package logging builds the application logger and shared attribute helpers.
//
// All packages log through *slog.Logger. This package standardizes handler
// construction (console or JSON, fanned out to stdout and a log file), level
// parsing, and the attribute vocabulary used across components so operators
// can filter on consistent field names.
package logging
