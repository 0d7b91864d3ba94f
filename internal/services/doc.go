// Package services defines shared utilities consumed by the clip processor,
// the auto-clip manager, and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, session IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a kind,
//     an operation, and an operator hint when they are logged or persisted.
//
// Use these helpers when wiring new processing logic so error handling and
// observability stay uniform across the pipeline.
package services
