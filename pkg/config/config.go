package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the daemon configuration
type Config struct {
	ListenAddr          string        `yaml:"listen_addr"`
	StorageRoot         string        `yaml:"storage_root"`
	MaxConcurrentJobs   int           `yaml:"max_concurrent_jobs"` // 0 = derive from hardware
	JobTimeout          time.Duration `yaml:"job_timeout"`
	CleanupDelay        time.Duration `yaml:"cleanup_delay"`
	DeleteAfterDownload bool          `yaml:"delete_after_download"`
	SweepEnabled        bool          `yaml:"sweep_enabled"`
	SweepMaxAge         time.Duration `yaml:"sweep_max_age"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	LogLevel            string        `yaml:"log_level"`
	LogJSON             bool          `yaml:"log_json"`
}

// Default returns the daemon defaults
func Default() Config {
	return Config{
		ListenAddr:          ":8080",
		StorageRoot:         "./data/jobs",
		MaxConcurrentJobs:   0,
		JobTimeout:          30 * time.Minute,
		CleanupDelay:        time.Hour,
		DeleteAfterDownload: true,
		SweepEnabled:        true,
		SweepMaxAge:         24 * time.Hour,
		SweepInterval:       time.Hour,
		LogLevel:            "info",
		LogJSON:             false,
	}
}

// Load reads configuration from an optional YAML file and AUDEX_* environment
// variables, over the defaults. A missing file is only an error when the path
// was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AUDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("storage_root", cfg.StorageRoot)
	v.SetDefault("max_concurrent_jobs", cfg.MaxConcurrentJobs)
	v.SetDefault("job_timeout", cfg.JobTimeout)
	v.SetDefault("cleanup_delay", cfg.CleanupDelay)
	v.SetDefault("delete_after_download", cfg.DeleteAfterDownload)
	v.SetDefault("sweep_enabled", cfg.SweepEnabled)
	v.SetDefault("sweep_max_age", cfg.SweepMaxAge)
	v.SetDefault("sweep_interval", cfg.SweepInterval)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_json", cfg.LogJSON)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.ListenAddr = v.GetString("listen_addr")
	cfg.StorageRoot = v.GetString("storage_root")
	cfg.MaxConcurrentJobs = v.GetInt("max_concurrent_jobs")
	cfg.JobTimeout = v.GetDuration("job_timeout")
	cfg.CleanupDelay = v.GetDuration("cleanup_delay")
	cfg.DeleteAfterDownload = v.GetBool("delete_after_download")
	cfg.SweepEnabled = v.GetBool("sweep_enabled")
	cfg.SweepMaxAge = v.GetDuration("sweep_max_age")
	cfg.SweepInterval = v.GetDuration("sweep_interval")
	cfg.LogLevel = v.GetString("log_level")
	cfg.LogJSON = v.GetBool("log_json")

	return cfg, cfg.Validate()
}

// Validate checks configuration consistency
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.StorageRoot == "" {
		return fmt.Errorf("storage_root must not be empty")
	}
	if c.MaxConcurrentJobs < 0 {
		return fmt.Errorf("max_concurrent_jobs must not be negative")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive")
	}
	if c.CleanupDelay < 0 {
		return fmt.Errorf("cleanup_delay must not be negative")
	}
	if c.SweepEnabled && c.SweepMaxAge <= 0 {
		return fmt.Errorf("sweep_max_age must be positive when sweeping is enabled")
	}
	if c.SweepEnabled && c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive when sweeping is enabled")
	}
	return nil
}
