// Package logging assembles the structured slog loggers used by imgdupes.
//
// It owns the console and JSON handlers, resolves level and output routing
// from configuration, and exposes context helpers so pipeline code tags every
// line with the run identifier and phase. A no-op logger is provided for tests
// and for wiring code that has no logger to hand.
package logging
