// Package logging constructs slog loggers for the CLI: a human console
// handler or JSON, with level parsing and an optional log-file tee under
// the configured log directory.
package logging
