// Package logging assembles structured slog loggers for letterscribe.
//
// It owns the console and JSON handlers, level parsing, and the optional
// per-run log file, and exposes context helpers so batch code can tag log
// lines with the run ID, model key, and group index. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
