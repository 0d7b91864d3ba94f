// Package daemon coordinates the long-running clipforge process.
//
// It owns the startup and shutdown order: the single-instance flock, recovery
// of interrupted PROCESSING items, rehydration of recording clips, the queue
// processor, the capture-device monitor, the maintenance schedule, and the
// HTTP API. Individual behaviour lives in those packages; this package only
// sequences them.
package daemon
