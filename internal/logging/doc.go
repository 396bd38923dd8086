// Package logging assembles structured slog loggers used by the ledaps
// commands.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so acquisition and pipeline code
// can tag log lines with years, stages, and run correlation IDs. Components
// receive a *slog.Logger at construction; NewNop serves tests and wiring code
// that has nothing to log to.
package logging
