// Package api exposes the daemon over HTTP and defines the wire-format types
// the CLI and other consumers use. It translates internal queue models into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a clip queue entry with its trigger
// translated to the voice/gesture/button vocabulary.
//
// Session, Clip, TriggerConfig: camelCase views of the corresponding rows.
//
// DaemonStatus: running state, workflow summary, active clips, and
// dependency availability.
//
// # Routing
//
// NewRouter builds a chi router under /api. Handlers are closures over
// ServerConfig. /api/events streams notification envelopes as Server-Sent
// Events, optionally filtered by ?sessionId=.
//
// # Client
//
// Client wraps the HTTP surface for the clipforge CLI.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors are returned as ErrorResponse with a stable upper-case code.
package api
