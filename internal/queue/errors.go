package queue

import "errors"

var (
	// ErrNotFound is returned when a row addressed by ID does not exist.
	ErrNotFound = errors.New("queue item not found")
	// ErrInvalidTransition is returned when a status change is not permitted
	// from the item's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotClaimed is returned by StartProcessing when another worker won the
	// claim or the item left PENDING before the update ran.
	ErrNotClaimed = errors.New("queue item not claimed")
	// ErrSessionRecording is returned when a session already owns a RECORDING item.
	ErrSessionRecording = errors.New("session already has a recording clip")
	// ErrInvalidWindow is returned when an end time precedes the start time.
	ErrInvalidWindow = errors.New("clip end precedes start")
)
