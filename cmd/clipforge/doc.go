// Package main hosts the clipforge CLI.
//
// The Cobra command tree drives the daemon's HTTP API for sessions, triggers,
// queue control and exports. Queue inspection and maintenance fall back to
// the database when the daemon is not running. Daemon lifecycle commands
// launch and signal the daemon process.
package main
