package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/mfigueroa/audex/pkg/logging"
)

// Config defines retention policy and sweep interval for job directories
type Config struct {
	Enabled  bool
	MaxAge   time.Duration // Directories strictly older than this are removed
	Interval time.Duration // How often to sweep
}

// DefaultConfig returns sensible defaults for the janitor
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		MaxAge:   24 * time.Hour,
		Interval: time.Hour,
	}
}

// Sweeper is the file-store surface the janitor needs
type Sweeper interface {
	SweepOlderThan(maxAge time.Duration) (int, error)
}

// Stats tracks sweep operations
type Stats struct {
	LastSweepTime     time.Time
	LastSweepDuration time.Duration
	LastSweepRemoved  int
	TotalRemoved      int64
	TotalSweeps       int64
}

// Janitor periodically sweeps aged job directories out of the file store,
// reclaiming space left by jobs whose delayed cleanup never fired (process
// restarts, abandoned downloads).
type Janitor struct {
	config  Config
	sweeper Sweeper
	logger  *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// New creates a janitor
func New(config Config, sweeper Sweeper, logger *logging.Logger) *Janitor {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		config:  config,
		sweeper: sweeper,
		logger:  logger.WithField("component", "janitor"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the sweep loop
func (j *Janitor) Start() {
	if !j.config.Enabled {
		j.logger.Info("janitor disabled")
		return
	}
	j.logger.Info("janitor started", map[string]interface{}{
		"max_age":  j.config.MaxAge.String(),
		"interval": j.config.Interval.String(),
	})
	j.wg.Add(1)
	go j.loop()
}

// Stop gracefully stops the sweep loop
func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
}

func (j *Janitor) loop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.SweepNow()
		}
	}
}

// SweepNow runs one sweep immediately and returns the count removed
func (j *Janitor) SweepNow() int {
	start := time.Now()
	removed, err := j.sweeper.SweepOlderThan(j.config.MaxAge)
	if err != nil {
		j.logger.Error("sweep failed", map[string]interface{}{"error": err.Error()})
	}
	duration := time.Since(start)

	j.mu.Lock()
	j.stats.LastSweepTime = time.Now()
	j.stats.LastSweepDuration = duration
	j.stats.LastSweepRemoved = removed
	j.stats.TotalRemoved += int64(removed)
	j.stats.TotalSweeps++
	j.mu.Unlock()

	if removed > 0 {
		j.logger.Info("sweep complete", map[string]interface{}{"removed": removed, "duration": duration.String()})
	}
	return removed
}

// GetStats returns current sweep statistics
func (j *Janitor) GetStats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}
