package models

import (
	"fmt"
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[JobStatus]map[JobStatus]bool{
	JobStatusQueued: {
		JobStatusProcessing: true, // Queued → Processing (admission into a free slot)
		JobStatusCancelled:  true, // Queued → Cancelled (removed from queue before start)
	},
	JobStatusProcessing: {
		JobStatusCompleted: true, // Processing → Completed (engine success)
		JobStatusFailed:    true, // Processing → Failed (engine error or watchdog timeout)
		JobStatusCancelled: true, // Processing → Cancelled (caller cancels mid-run)
	},
	// Terminal states (no transitions allowed)
	JobStatusCompleted: {},
	JobStatusFailed:    {},
	JobStatusCancelled: {},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to JobStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminalState returns true if the state is terminal (no further transitions)
func IsTerminalState(state JobStatus) bool {
	return state == JobStatusCompleted || state == JobStatusFailed || state == JobStatusCancelled
}

// IsActiveState returns true if the job is queued or actively being processed
func IsActiveState(state JobStatus) bool {
	return state == JobStatusQueued || state == JobStatusProcessing
}
