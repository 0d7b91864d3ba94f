// Package trigger normalizes heterogeneous detection signals into a single
// Event shape consumed by the auto-clip manager.
//
// Audio phrase matches, visual detections, and manual button presses arrive
// with different fields; Normalize maps each onto Event without side effects.
// The package also owns the wire vocabulary (voice, gesture, button) used in
// notification payloads and API requests, translating it to and from the
// persisted queue.TriggerType values.
package trigger
