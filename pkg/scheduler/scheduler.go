package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfigueroa/audex/pkg/engine"
	"github.com/mfigueroa/audex/pkg/filestore"
	"github.com/mfigueroa/audex/pkg/logging"
	"github.com/mfigueroa/audex/pkg/models"
	"github.com/mfigueroa/audex/pkg/store"
)

// Config holds scheduler configuration
type Config struct {
	MaxConcurrent int           // Concurrency bound C: max jobs processing at once
	JobTimeout    time.Duration // Watchdog: force-fail jobs running longer than this
	CleanupDelay  time.Duration // 0 = remove job files immediately on termination;
	// >0 = keep them around (downloadable) and arm a delayed cleanup
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 2,
		JobTimeout:    30 * time.Minute,
		CleanupDelay:  0,
	}
}

// Recorder receives scheduler events for metrics export
type Recorder interface {
	RecordSubmit()
	RecordTermination(status models.JobStatus, duration time.Duration)
}

// Scheduler coordinates job admission and termination: it owns the FIFO
// queue of pending job ids and the bounded set of running ids, and is the
// sole mutator of job state in the registry. The mutex is never held across
// a call into the engine; each admitted job runs in its own goroutine with
// a cancellable context and a watchdog timer.
type Scheduler struct {
	registry *store.Registry
	files    *filestore.FileStore
	engine   engine.Engine
	config   Config
	logger   *logging.Logger
	recorder Recorder

	mu      sync.Mutex
	queue   []string
	running map[string]*execution
}

// execution tracks one admitted job's cancellation handle, watchdog and
// termination guard. The done flag, read and written under the scheduler
// mutex, makes termination first-wins: whichever trigger (engine result,
// engine error, cancel, watchdog) sets it performs the slot release,
// watchdog disarm, cleanup and re-admission exactly once.
type execution struct {
	cancel    context.CancelFunc
	watchdog  *time.Timer
	startedAt time.Time
	done      bool
}

// New creates a scheduler
func New(registry *store.Registry, files *filestore.FileStore, eng engine.Engine, config Config, logger *logging.Logger) *Scheduler {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &Scheduler{
		registry: registry,
		files:    files,
		engine:   eng,
		config:   config,
		logger:   logger.WithField("component", "scheduler"),
		running:  make(map[string]*execution),
	}
}

// SetRecorder attaches a metrics recorder
func (s *Scheduler) SetRecorder(r Recorder) {
	s.recorder = r
}

// Submit creates a queued job record, appends it to the FIFO queue and
// attempts admission. It returns the new job id immediately and never
// blocks on the engine.
func (s *Scheduler) Submit(inputPath, outputPath, originalName string) string {
	id := uuid.NewString()
	s.SubmitWithID(id, inputPath, outputPath, originalName)
	return id
}

// SubmitWithID is Submit with a caller-allocated id, for callers that store
// the input file under the job directory before creating the record.
func (s *Scheduler) SubmitWithID(id, inputPath, outputPath, originalName string) error {
	job := &models.Job{
		ID:           id,
		InputPath:    inputPath,
		OutputPath:   outputPath,
		OriginalName: originalName,
		CreatedAt:    time.Now(),
	}
	if err := s.registry.Create(job); err != nil {
		return err
	}

	s.mu.Lock()
	s.queue = append(s.queue, id)
	s.fillSlotsLocked()
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordSubmit()
	}
	s.logger.Info("job submitted", map[string]interface{}{"job_id": id, "name": originalName})
	return nil
}

// Status returns the read-only projection of a job, or false for unknown ids
func (s *Scheduler) Status(id string) (models.JobView, bool) {
	job := s.registry.Get(id)
	if job == nil {
		return models.JobView{}, false
	}
	return job.View(), true
}

// Cancel cancels a queued or processing job. A queued job is removed from
// the queue without ever starting; a processing job has its engine signalled
// to stop and its slot released. For any other status (terminal or unknown
// id) it returns false with no side effects.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	for i, queued := range s.queue {
		if queued != id {
			continue
		}
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
		err := s.registry.SetTerminal(id, models.JobStatusCancelled, "", nil)
		s.mu.Unlock()
		if err != nil {
			return false
		}
		s.cleanupJob(id)
		if s.recorder != nil {
			s.recorder.RecordTermination(models.JobStatusCancelled, 0)
		}
		s.logger.Info("queued job cancelled", map[string]interface{}{"job_id": id})
		return true
	}
	s.mu.Unlock()

	return s.terminate(id, models.JobStatusCancelled, "", nil)
}

// RunningCount returns the number of jobs currently processing
func (s *Scheduler) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// QueueLength returns the number of jobs waiting in the queue
func (s *Scheduler) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Idle reports whether no job is queued or running
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running) == 0 && len(s.queue) == 0
}

// fillSlotsLocked admits queued jobs into free slots in FIFO order.
// Caller must hold s.mu. Runs after every submit and after every
// termination that frees a slot.
func (s *Scheduler) fillSlotsLocked() {
	for len(s.running) < s.config.MaxConcurrent && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]

		// Defensive: skip ids whose record vanished or already moved on
		if err := s.registry.SetProcessing(id); err != nil {
			s.logger.Warn("skipping queued id without live record", map[string]interface{}{"job_id": id})
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		ex := &execution{
			cancel:    cancel,
			startedAt: time.Now(),
		}
		jobID := id
		ex.watchdog = time.AfterFunc(s.config.JobTimeout, func() {
			if s.terminate(jobID, models.JobStatusFailed, "job timed out: exceeded "+s.config.JobTimeout.String(), nil) {
				s.logger.Warn("watchdog fired", map[string]interface{}{"job_id": jobID})
			}
		})
		s.running[id] = ex

		go s.runJob(ctx, jobID)
	}
}

// runJob executes one admitted job against the engine
func (s *Scheduler) runJob(ctx context.Context, id string) {
	job := s.registry.Get(id)
	if job == nil {
		s.terminate(id, models.JobStatusFailed, "job record missing at execution start", nil)
		return
	}

	onProgress := func(percent int) {
		s.registry.SetProgress(id, percent)
	}

	result, err := s.engine.ExtractAudio(ctx, job.InputPath, job.OutputPath, onProgress)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation or watchdog won; that path already terminated the job
			return
		}
		s.terminate(id, models.JobStatusFailed, err.Error(), nil)
		return
	}
	s.terminate(id, models.JobStatusCompleted, "", result)
}

// terminate finishes a running job exactly once. The first trigger wins and
// performs all termination side effects; later triggers observe done and
// return false without duplicating the release or cleanup.
func (s *Scheduler) terminate(id string, status models.JobStatus, errMsg string, result *models.Result) bool {
	s.mu.Lock()
	ex, ok := s.running[id]
	if !ok || ex.done {
		s.mu.Unlock()
		return false
	}
	ex.done = true
	ex.watchdog.Stop()
	delete(s.running, id)
	err := s.registry.SetTerminal(id, status, errMsg, result)
	s.fillSlotsLocked()
	s.mu.Unlock()

	// Reap the engine process if it is still running (no-op otherwise)
	ex.cancel()

	if err != nil {
		s.logger.Error("terminal transition rejected", map[string]interface{}{"job_id": id, "error": err.Error()})
	}

	s.cleanupJob(id)

	if s.recorder != nil {
		s.recorder.RecordTermination(status, time.Since(ex.startedAt))
	}
	s.logger.Info("job finished", map[string]interface{}{"job_id": id, "status": string(status)})
	return true
}

// cleanupJob reclaims a terminated job's files. With a retention delay the
// output stays downloadable until the delayed cleanup fires. Errors are
// logged and never escalate to other jobs.
func (s *Scheduler) cleanupJob(id string) {
	if s.config.CleanupDelay > 0 {
		s.files.ScheduleDelayedCleanup(id, s.config.CleanupDelay)
		return
	}
	if err := s.files.Cleanup(id); err != nil {
		s.logger.Error("cleanup failed", map[string]interface{}{"job_id": id, "error": err.Error()})
	}
}
