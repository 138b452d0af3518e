// Package services defines shared utilities consumed by the pipeline stage
// executors, the workflow orchestrator, and the routing engine.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, document IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the intake error taxonomy (transient, fatal, duplicate conflict,
//     data conflict, permission denied, routing failure).
//
// Use these helpers when wiring new stage logic so error classification and
// observability stay uniform across the pipeline.
package services
