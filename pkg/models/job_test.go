package models

import "testing"

func TestView_ProjectsJob(t *testing.T) {
	job := &Job{
		ID:           "job-1",
		InputPath:    "/data/job-1/input.mp4",
		OutputPath:   "/data/job-1/holiday.mp3",
		OriginalName: "holiday.mp4",
		Status:       JobStatusProcessing,
		Progress:     42,
	}

	v := job.View()
	if v.ID != "job-1" || v.Name != "holiday.mp4" {
		t.Errorf("Identity fields wrong: %+v", v)
	}
	if v.Progress != 42 || v.Status != JobStatusProcessing {
		t.Errorf("State fields wrong: %+v", v)
	}
	if v.Message == "" {
		t.Error("Expected a human-readable message")
	}
	// Output path is only exposed once the audio actually exists
	if v.OutputPath != "" {
		t.Errorf("Output path exposed before completion: %s", v.OutputPath)
	}
}

func TestView_CompletedExposesOutputPath(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		OutputPath: "/data/job-1/holiday.mp3",
		Status:     JobStatusCompleted,
		Progress:   100,
	}
	v := job.View()
	if v.OutputPath != "/data/job-1/holiday.mp3" {
		t.Errorf("Expected output path on completed view, got %q", v.OutputPath)
	}
}

func TestView_FailedMessageCarriesError(t *testing.T) {
	job := &Job{
		ID:     "job-1",
		Status: JobStatusFailed,
		Error:  "no audio stream in input",
	}
	v := job.View()
	if v.Error != "no audio stream in input" {
		t.Errorf("Error not projected: %q", v.Error)
	}
	if v.Message == "" {
		t.Error("Expected failure message")
	}
}
