// Package queue persists clip queue items, capture sessions, finished clips,
// and per-workflow trigger configuration in SQLite.
//
// The Store manages database connections, schema initialization, stats queries,
// heartbeat tracking, stale-claim recovery, and the clip status transitions.
// Every status change is validated by CanTransition and applied as a
// conditional UPDATE keyed on the current status, so two processor workers can
// never both claim the same item.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
