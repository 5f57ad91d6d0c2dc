// Package services defines shared utilities consumed by the pipeline stages
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp entry keys, stage names, and run correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     retryable within the current sweep (transient) or skip-and-leave-pending
//     (permanent), and the fatal configuration/state markers that abort a
//     stage outright.
//
// Use these helpers when wiring new stage logic so failure handling and
// observability stay uniform across the pipeline.
package services
