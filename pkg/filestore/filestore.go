package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// OutputExtension is the container extension for extracted audio
const OutputExtension = ".mp3"

// FileStore owns the root storage directory and partitions it by job id:
// every job gets its own subdirectory and no two jobs ever share a path.
// Delayed cleanups are tracked as one cancelable timer per job id; scheduling
// a new delay replaces any pending timer (last call wins).
type FileStore struct {
	root string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a file store rooted at dir. Failure to create the root is
// unrecoverable for the service and is returned as an error.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage root not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", dir, err)
	}
	return &FileStore{
		root:   dir,
		timers: make(map[string]*time.Timer),
	}, nil
}

// Root returns the root storage directory
func (fs *FileStore) Root() string {
	return fs.root
}

// JobDir returns the directory for a job id
func (fs *FileStore) JobDir(jobID string) string {
	return filepath.Join(fs.root, jobID)
}

// Store writes uploaded bytes into the job's directory, deriving the input
// filename from the original file's extension, and returns the input path.
// The directory create is idempotent.
func (fs *FileStore) Store(data []byte, originalName, jobID string) (string, error) {
	dir := fs.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job directory: %w", err)
	}

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".bin"
	}
	inputPath := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(inputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write input file: %w", err)
	}
	return inputPath, nil
}

// OutputPathFor derives the output path inside the job directory by replacing
// the original extension with the audio container extension. Pure path
// computation, no I/O.
func (fs *FileStore) OutputPathFor(jobID, originalName string) string {
	base := filepath.Base(originalName)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = "output"
	}
	return filepath.Join(fs.JobDir(jobID), name+OutputExtension)
}

// Cleanup recursively removes the job's directory. A missing directory is a
// success, not an error: cleanup races are expected. Any pending delayed
// cleanup for the id is cancelled first so it can never double-fire.
func (fs *FileStore) Cleanup(jobID string) error {
	fs.mu.Lock()
	if t, ok := fs.timers[jobID]; ok {
		t.Stop()
		delete(fs.timers, jobID)
	}
	fs.mu.Unlock()

	if err := os.RemoveAll(fs.JobDir(jobID)); err != nil {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}
	return nil
}

// ScheduleDelayedCleanup arms a one-shot timer that removes the job's
// directory after delay. Calling it again for the same id before the timer
// fires replaces the previous timer; the earlier one will not fire.
func (fs *FileStore) ScheduleDelayedCleanup(jobID string, delay time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if t, ok := fs.timers[jobID]; ok {
		t.Stop()
	}
	fs.timers[jobID] = time.AfterFunc(delay, func() {
		fs.mu.Lock()
		delete(fs.timers, jobID)
		fs.mu.Unlock()
		// Removal races with explicit cleanup are fine; RemoveAll on an
		// absent directory is a no-op.
		os.RemoveAll(fs.JobDir(jobID))
	})
}

// SweepOlderThan removes every job directory whose last-modified time is
// strictly older than maxAge and returns the count removed. Directories at
// or below the threshold survive. Entries that vanish mid-scan are skipped.
func (fs *FileStore) SweepOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return 0, fmt.Errorf("failed to scan storage root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Already cleaned concurrently
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := fs.Cleanup(entry.Name()); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Exists reports whether a path exists. Never errors.
func (fs *FileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PendingCleanups returns the number of armed delayed-cleanup timers
func (fs *FileStore) PendingCleanups() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.timers)
}
