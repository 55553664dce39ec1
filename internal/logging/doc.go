// Package logging builds the slog loggers used across pagemill.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log files and machine consumption. Attr helpers and the
// standardized field names keep log keys consistent between the store, the
// pipeline lanes, and the CLI.
package logging
