// Package logging assembles the structured slog loggers used by bslocal.
//
// It owns the console and JSON handlers, level parsing and output routing,
// and exposes small attribute helpers so the tunnel controller, resolver and
// CLI tag their lines with the same keys (component, session_id, pid). A
// no-op logger is provided for tests and for wiring code that cannot fail.
package logging
