package filestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	return fs
}

func TestNew_EmptyRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("Expected error for empty storage root")
	}
}

func TestStore_WritesInputUnderJobDir(t *testing.T) {
	fs := newTestStore(t)

	inputPath, err := fs.Store([]byte("media bytes"), "holiday.mp4", "job-1")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if filepath.Dir(inputPath) != fs.JobDir("job-1") {
		t.Errorf("Input stored outside the job directory: %s", inputPath)
	}
	if filepath.Base(inputPath) != "input.mp4" {
		t.Errorf("Expected input.mp4, got %s", filepath.Base(inputPath))
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		t.Fatalf("Failed to read stored input: %v", err)
	}
	if string(data) != "media bytes" {
		t.Errorf("Stored bytes corrupted: %q", data)
	}
}

func TestStore_ExtensionFallback(t *testing.T) {
	fs := newTestStore(t)

	inputPath, err := fs.Store([]byte("x"), "noextension", "job-1")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if filepath.Base(inputPath) != "input.bin" {
		t.Errorf("Expected input.bin fallback, got %s", filepath.Base(inputPath))
	}
}

func TestStore_IsolatesJobs(t *testing.T) {
	fs := newTestStore(t)

	a, err := fs.Store([]byte("a"), "clip.mp4", "job-a")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	b, err := fs.Store([]byte("b"), "clip.mp4", "job-b")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if a == b {
		t.Error("Two jobs share an input path")
	}
	if filepath.Dir(a) == filepath.Dir(b) {
		t.Error("Two jobs share a directory")
	}
}

func TestOutputPathFor(t *testing.T) {
	fs := newTestStore(t)

	cases := []struct {
		original string
		want     string
	}{
		{"holiday.mp4", "holiday.mp3"},
		{"talk.show.mkv", "talk.show.mp3"},
		{"noextension", "noextension.mp3"},
		{".hidden", "output.mp3"},
		{"/tmp/evil/../clip.mov", "clip.mp3"},
	}
	for _, tc := range cases {
		got := fs.OutputPathFor("job-1", tc.original)
		if filepath.Base(got) != tc.want {
			t.Errorf("OutputPathFor(%q) = %s, want base %s", tc.original, got, tc.want)
		}
		if filepath.Dir(got) != fs.JobDir("job-1") {
			t.Errorf("OutputPathFor(%q) escaped the job directory: %s", tc.original, got)
		}
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.Store([]byte("x"), "clip.mp4", "job-1"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := fs.Cleanup("job-1"); err != nil {
		t.Fatalf("First cleanup failed: %v", err)
	}
	if fs.Exists(fs.JobDir("job-1")) {
		t.Error("Job directory survived cleanup")
	}

	// Second cleanup of the same id, and cleanup of an id that never
	// existed, both succeed
	if err := fs.Cleanup("job-1"); err != nil {
		t.Errorf("Repeated cleanup failed: %v", err)
	}
	if err := fs.Cleanup("never-existed"); err != nil {
		t.Errorf("Cleanup of unknown id failed: %v", err)
	}
}

func TestScheduleDelayedCleanup_Fires(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.Store([]byte("x"), "clip.mp4", "job-1"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	fs.ScheduleDelayedCleanup("job-1", 30*time.Millisecond)

	if fs.PendingCleanups() != 1 {
		t.Errorf("Expected 1 pending cleanup, got %d", fs.PendingCleanups())
	}

	deadline := time.Now().Add(time.Second)
	for fs.Exists(fs.JobDir("job-1")) {
		if time.Now().After(deadline) {
			t.Fatal("Delayed cleanup never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if fs.PendingCleanups() != 0 {
		t.Errorf("Timer entry leaked: %d pending", fs.PendingCleanups())
	}
}

func TestScheduleDelayedCleanup_LastCallWins(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.Store([]byte("x"), "clip.mp4", "job-1"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// The short timer is replaced by the long one, so the directory must
	// still exist after the short delay would have fired
	fs.ScheduleDelayedCleanup("job-1", 30*time.Millisecond)
	fs.ScheduleDelayedCleanup("job-1", 200*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	if !fs.Exists(fs.JobDir("job-1")) {
		t.Fatal("Replaced timer fired anyway")
	}
	if fs.PendingCleanups() != 1 {
		t.Errorf("Expected 1 pending cleanup after replacement, got %d", fs.PendingCleanups())
	}

	deadline := time.Now().Add(time.Second)
	for fs.Exists(fs.JobDir("job-1")) {
		if time.Now().After(deadline) {
			t.Fatal("Replacement timer never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCleanup_CancelsPendingTimer(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.Store([]byte("x"), "clip.mp4", "job-1"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	fs.ScheduleDelayedCleanup("job-1", time.Hour)

	if err := fs.Cleanup("job-1"); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if fs.PendingCleanups() != 0 {
		t.Errorf("Pending timer survived explicit cleanup: %d", fs.PendingCleanups())
	}
}

func TestSweepOlderThan_StrictThreshold(t *testing.T) {
	fs := newTestStore(t)

	for _, id := range []string{"old-1", "old-2", "fresh"} {
		if _, err := fs.Store([]byte("x"), "clip.mp4", id); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	// Age two directories past the threshold
	stale := time.Now().Add(-2 * time.Hour)
	for _, id := range []string{"old-1", "old-2"} {
		if err := os.Chtimes(fs.JobDir(id), stale, stale); err != nil {
			t.Fatalf("Failed to age %s: %v", id, err)
		}
	}

	removed, err := fs.SweepOlderThan(time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removals, got %d", removed)
	}
	if fs.Exists(fs.JobDir("old-1")) || fs.Exists(fs.JobDir("old-2")) {
		t.Error("Stale directories survived the sweep")
	}
	if !fs.Exists(fs.JobDir("fresh")) {
		t.Error("Fresh directory was swept")
	}
}

func TestSweepOlderThan_EmptyRoot(t *testing.T) {
	fs := newTestStore(t)

	removed, err := fs.SweepOlderThan(time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected no removals, got %d", removed)
	}
}
