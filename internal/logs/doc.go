// Package logs reads the daemon's JSON log file for `clipforge logs`.
//
// Last returns the final N lines without loading the whole file, Follow polls
// for appended lines from a byte offset, and Filter narrows records by level,
// event type, session, item, or free text.
package logs
