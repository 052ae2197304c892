package metrics

import (
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/mfigueroa/audex/pkg/models"
	"github.com/mfigueroa/audex/pkg/store"
)

// SchedulerStats is the scheduler surface the exporter scrapes
type SchedulerStats interface {
	RunningCount() int
	QueueLength() int
}

// CleanupStats is the file-store surface the exporter scrapes
type CleanupStats interface {
	PendingCleanups() int
}

// Exporter exposes Prometheus metrics for the daemon. It implements the
// scheduler's Recorder interface for event counters and reads queue/registry
// state at scrape time for the gauges.
type Exporter struct {
	registry  *store.Registry
	scheduler SchedulerStats
	cleanups  CleanupStats

	promRegistry *promclient.Registry
	submitted    promclient.Counter
	terminations *promclient.CounterVec
	jobDuration  promclient.Histogram
	jobsByState  *promclient.GaugeVec
	activeJobs   promclient.Gauge
	queueLength  promclient.Gauge
	pendingClean promclient.Gauge
	startTime    time.Time
}

// NewExporter creates a Prometheus exporter
func NewExporter(registry *store.Registry, sched SchedulerStats, cleanups CleanupStats) *Exporter {
	e := &Exporter{
		registry:     registry,
		scheduler:    sched,
		cleanups:     cleanups,
		promRegistry: promclient.NewRegistry(),
		startTime:    time.Now(),
	}

	e.submitted = promclient.NewCounter(promclient.CounterOpts{
		Name: "audex_jobs_submitted_total",
		Help: "Total number of jobs submitted",
	})
	e.terminations = promclient.NewCounterVec(promclient.CounterOpts{
		Name: "audex_jobs_terminated_total",
		Help: "Total number of terminated jobs by final status",
	}, []string{"status"})
	e.jobDuration = promclient.NewHistogram(promclient.HistogramOpts{
		Name:    "audex_job_duration_seconds",
		Help:    "Processing duration of terminated jobs",
		Buckets: promclient.ExponentialBuckets(1, 2, 12),
	})
	e.jobsByState = promclient.NewGaugeVec(promclient.GaugeOpts{
		Name: "audex_jobs",
		Help: "Number of jobs in the registry by state",
	}, []string{"state"})
	e.activeJobs = promclient.NewGauge(promclient.GaugeOpts{
		Name: "audex_active_jobs",
		Help: "Number of jobs currently processing",
	})
	e.queueLength = promclient.NewGauge(promclient.GaugeOpts{
		Name: "audex_queue_length",
		Help: "Number of jobs waiting in the FIFO queue",
	})
	e.pendingClean = promclient.NewGauge(promclient.GaugeOpts{
		Name: "audex_pending_cleanups",
		Help: "Number of armed delayed-cleanup timers",
	})

	e.promRegistry.MustRegister(
		e.submitted,
		e.terminations,
		e.jobDuration,
		e.jobsByState,
		e.activeJobs,
		e.queueLength,
		e.pendingClean,
	)
	return e
}

// RecordSubmit counts a submission
func (e *Exporter) RecordSubmit() {
	e.submitted.Inc()
}

// RecordTermination counts a terminated job and observes its duration
func (e *Exporter) RecordTermination(status models.JobStatus, duration time.Duration) {
	e.terminations.WithLabelValues(string(status)).Inc()
	if duration > 0 {
		e.jobDuration.Observe(duration.Seconds())
	}
}

// ServeHTTP serves Prometheus text exposition at /metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Refresh scrape-time gauges
	for _, state := range []models.JobStatus{
		models.JobStatusQueued,
		models.JobStatusProcessing,
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	} {
		e.jobsByState.WithLabelValues(string(state)).Set(0)
	}
	for state, count := range e.registry.CountByStatus() {
		e.jobsByState.WithLabelValues(string(state)).Set(float64(count))
	}
	if e.scheduler != nil {
		e.activeJobs.Set(float64(e.scheduler.RunningCount()))
		e.queueLength.Set(float64(e.scheduler.QueueLength()))
	}
	if e.cleanups != nil {
		e.pendingClean.Set(float64(e.cleanups.PendingCleanups()))
	}

	families, err := e.promRegistry.Gather()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error gathering metrics: %v", err), http.StatusInternalServerError)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return
		}
	}

	// Uptime emitted by hand, outside the registry
	fmt.Fprintf(w, "# HELP audex_uptime_seconds Daemon uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE audex_uptime_seconds gauge\n")
	fmt.Fprintf(w, "audex_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())
}
