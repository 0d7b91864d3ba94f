// Package autoclip turns normalized triggers into clip queue items.
//
// A Manager owns the working set of clips that are currently RECORDING: at
// most one per session, each with an optional auto-end timer. Every
// check-then-act sequence for a session runs under that session's mutex, and
// timers are explicit handles stored with the clip so that an explicit
// EndClip or CancelClip always stops them. Whichever of the timer or the
// explicit call arrives second finds no working-set entry and becomes a no-op.
//
// The working set is a cache. The queue store's RECORDING rows are the system
// of record and Rehydrate rebuilds the cache from them after a restart.
//
// Persistence failures are logged and reported as a nil result; they never
// propagate to the trigger pipeline.
package autoclip
