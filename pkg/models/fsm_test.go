package models

import "testing"

func TestValidateTransition(t *testing.T) {
	valid := []struct{ from, to JobStatus }{
		{JobStatusQueued, JobStatusProcessing},
		{JobStatusQueued, JobStatusCancelled},
		{JobStatusProcessing, JobStatusCompleted},
		{JobStatusProcessing, JobStatusFailed},
		{JobStatusProcessing, JobStatusCancelled},
	}
	for _, tc := range valid {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Errorf("Expected %s -> %s to be valid: %v", tc.from, tc.to, err)
		}
	}

	invalid := []struct{ from, to JobStatus }{
		{JobStatusQueued, JobStatusCompleted},
		{JobStatusQueued, JobStatusFailed},
		{JobStatusCompleted, JobStatusProcessing},
		{JobStatusCompleted, JobStatusFailed},
		{JobStatusFailed, JobStatusProcessing},
		{JobStatusCancelled, JobStatusQueued},
		{JobStatusProcessing, JobStatusQueued},
	}
	for _, tc := range invalid {
		if err := ValidateTransition(tc.from, tc.to); err == nil {
			t.Errorf("Expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestValidateTransition_UnknownState(t *testing.T) {
	if err := ValidateTransition(JobStatus("exploded"), JobStatusFailed); err == nil {
		t.Error("Expected error for unknown source state")
	}
}

func TestIsTerminalState(t *testing.T) {
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		if !IsTerminalState(s) {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusQueued, JobStatusProcessing} {
		if IsTerminalState(s) {
			t.Errorf("Expected %s to be non-terminal", s)
		}
	}
}

func TestIsActiveState(t *testing.T) {
	for _, s := range []JobStatus{JobStatusQueued, JobStatusProcessing} {
		if !IsActiveState(s) {
			t.Errorf("Expected %s to be active", s)
		}
	}
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		if IsActiveState(s) {
			t.Errorf("Expected %s to be inactive", s)
		}
	}
}
