// Package workflow turns PENDING clip queue items into finished clips.
//
// The Manager runs a fixed pool of workers. Each worker polls for the oldest
// PENDING item, claims it with a conditional update so only one worker wins,
// and hands it to a Handler. The default handler, ClipPipeline, trims the
// item's window out of the session recording and converts it. Completion
// writes a Clip row; any error marks the item FAILED with the message kept for
// a later retry. A heartbeat runs while an item is processing and stale
// PROCESSING rows are reclaimed back to PENDING.
package workflow
