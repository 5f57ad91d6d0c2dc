// Package logging assembles the structured slog loggers shared by every
// pipeline stage.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus standardized field names so
// stage code tags log lines with entry keys, page numbers, and run
// correlation IDs the same way everywhere. A no-op logger is provided for
// tests and for wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the pipeline.
package logging
