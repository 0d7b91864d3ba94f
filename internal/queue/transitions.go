package queue

import "fmt"

// transitions lists every permitted status change. PROCESSING -> PENDING is
// only used when a stale or interrupted claim is reclaimed.
var transitions = map[Status][]Status{
	StatusRecording:  {StatusPending},
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusPending},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
