package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mfigueroa/audex/pkg/filestore"
	"github.com/mfigueroa/audex/pkg/hardware"
	"github.com/mfigueroa/audex/pkg/janitor"
	"github.com/mfigueroa/audex/pkg/logging"
	"github.com/mfigueroa/audex/pkg/models"
	"github.com/mfigueroa/audex/pkg/scheduler"
	"github.com/mfigueroa/audex/pkg/store"
)

// DefaultMaxUploadBytes bounds upload size (512 MB)
const DefaultMaxUploadBytes = 512 << 20

// SweepRunner is the janitor surface exposed over the API
type SweepRunner interface {
	SweepNow() int
	GetStats() janitor.Stats
}

// Handler maps HTTP requests onto the scheduler and file store. It holds no
// job state of its own; every operation is a thin call into the core.
type Handler struct {
	scheduler           *scheduler.Scheduler
	files               *filestore.FileStore
	registry            *store.Registry
	metrics             http.Handler
	sweeper             SweepRunner
	logger              *logging.Logger
	deleteAfterDownload bool
	maxUploadBytes      int64
	startTime           time.Time
}

// NewHandler creates an API handler
func NewHandler(sched *scheduler.Scheduler, files *filestore.FileStore, registry *store.Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &Handler{
		scheduler:      sched,
		files:          files,
		registry:       registry,
		logger:         logger.WithField("component", "api"),
		maxUploadBytes: DefaultMaxUploadBytes,
		startTime:      time.Now(),
	}
}

// SetMetricsHandler attaches the /metrics handler
func (h *Handler) SetMetricsHandler(m http.Handler) {
	h.metrics = m
}

// SetDeleteAfterDownload enables immediate cleanup after a successful download
func (h *Handler) SetDeleteAfterDownload(enabled bool) {
	h.deleteAfterDownload = enabled
}

// SetSweeper exposes the janitor's on-demand sweep at POST /sweep
func (h *Handler) SetSweeper(s SweepRunner) {
	h.sweeper = s
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/jobs", h.CreateJob).Methods("POST")
	r.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	r.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")
	r.HandleFunc("/jobs/{id}/cancel", h.CancelJob).Methods("POST")
	r.HandleFunc("/jobs/{id}/download", h.DownloadResult).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods("GET")
	}
	if h.sweeper != nil {
		r.HandleFunc("/sweep", h.RunSweep).Methods("POST")
	}
}

// CreateJob accepts a multipart upload, stores the input under a fresh job
// directory and submits the job. Returns 201 with the queued job view.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	// The id is allocated here so the input can live in the job directory
	// before the record exists
	id := uuid.NewString()
	inputPath, err := h.files.Store(data, header.Filename, id)
	if err != nil {
		h.logger.Error("failed to store upload", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	outputPath := h.files.OutputPathFor(id, header.Filename)

	if err := h.scheduler.SubmitWithID(id, inputPath, outputPath, header.Filename); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	view, _ := h.scheduler.Status(id)
	writeJSON(w, http.StatusCreated, view)
}

// ListJobs returns all job views, newest first
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.registry.All()
	views := make([]models.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// GetJob returns a single job view
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, ok := h.scheduler.Status(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CancelJob cancels a queued or processing job
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.scheduler.Cancel(id) {
		writeError(w, http.StatusConflict, "job cannot be cancelled")
		return
	}
	view, _ := h.scheduler.Status(id)
	writeJSON(w, http.StatusOK, view)
}

// DownloadResult streams the output file of a completed job. With
// delete-after-download enabled the job's files are removed once the
// response has been written.
func (h *Handler) DownloadResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job := h.registry.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != models.JobStatusCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not completed", job.Status))
		return
	}
	if !h.files.Exists(job.OutputPath) {
		writeError(w, http.StatusGone, "output no longer available")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", downloadName(job.OriginalName)))
	http.ServeFile(w, r, job.OutputPath)

	if h.deleteAfterDownload {
		if err := h.files.Cleanup(id); err != nil {
			h.logger.Error("post-download cleanup failed", map[string]interface{}{"job_id": id, "error": err.Error()})
		}
	}
}

// SweepResponse is the POST /sweep payload
type SweepResponse struct {
	Removed      int   `json:"removed"`
	TotalSweeps  int64 `json:"total_sweeps"`
	TotalRemoved int64 `json:"total_removed"`
}

// RunSweep triggers an immediate retention sweep
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	removed := h.sweeper.SweepNow()
	stats := h.sweeper.GetStats()
	writeJSON(w, http.StatusOK, SweepResponse{
		Removed:      removed,
		TotalSweeps:  stats.TotalSweeps,
		TotalRemoved: stats.TotalRemoved,
	})
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Running       int               `json:"running"`
	Queued        int               `json:"queued"`
	Hardware      hardware.Info     `json:"hardware"`
	Storage       hardware.DiskInfo `json:"storage"`
}

// Health reports daemon liveness plus scheduler and host state
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Running:       h.scheduler.RunningCount(),
		Queued:        h.scheduler.QueueLength(),
		Hardware:      hardware.Detect(),
		Storage:       hardware.DiskUsage(h.files.Root()),
	}
	writeJSON(w, http.StatusOK, resp)
}

// downloadName derives the attachment filename from the original upload name
func downloadName(originalName string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if base == "" {
		base = "output"
	}
	return base + filestore.OutputExtension
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
