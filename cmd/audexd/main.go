package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mfigueroa/audex/pkg/api"
	"github.com/mfigueroa/audex/pkg/config"
	"github.com/mfigueroa/audex/pkg/engine"
	"github.com/mfigueroa/audex/pkg/filestore"
	"github.com/mfigueroa/audex/pkg/hardware"
	"github.com/mfigueroa/audex/pkg/janitor"
	"github.com/mfigueroa/audex/pkg/logging"
	"github.com/mfigueroa/audex/pkg/metrics"
	"github.com/mfigueroa/audex/pkg/scheduler"
	"github.com/mfigueroa/audex/pkg/shutdown"
	"github.com/mfigueroa/audex/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	logger.Info("starting audexd", map[string]interface{}{"listen_addr": cfg.ListenAddr})

	// Root storage failure is fatal: nothing works without it
	files, err := filestore.New(cfg.StorageRoot)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	maxConcurrent := cfg.MaxConcurrentJobs
	if maxConcurrent == 0 {
		info := hardware.Detect()
		maxConcurrent = hardware.RecommendConcurrency(info)
		logger.Info("derived concurrency bound from hardware", map[string]interface{}{
			"cpu_threads":    info.CPUThreads,
			"max_concurrent": maxConcurrent,
		})
	}

	registry := store.NewRegistry()
	sched := scheduler.New(registry, files, engine.NewFFmpegEngine(), scheduler.Config{
		MaxConcurrent: maxConcurrent,
		JobTimeout:    cfg.JobTimeout,
		CleanupDelay:  cfg.CleanupDelay,
	}, logger)

	exporter := metrics.NewExporter(registry, sched, files)
	sched.SetRecorder(exporter)

	jan := janitor.New(janitor.Config{
		Enabled:  cfg.SweepEnabled,
		MaxAge:   cfg.SweepMaxAge,
		Interval: cfg.SweepInterval,
	}, files, logger)
	jan.Start()

	handler := api.NewHandler(sched, files, registry, logger)
	handler.SetMetricsHandler(exporter)
	handler.SetDeleteAfterDownload(cfg.DeleteAfterDownload)
	handler.SetSweeper(jan)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // large uploads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// LIFO: the server stops first so no new work arrives while draining
	shutdownMgr := shutdown.New(30 * time.Second)
	shutdownMgr.Register(func(ctx context.Context) error {
		// Let in-flight extractions drain within the shutdown budget
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for !sched.Idle() {
			select {
			case <-ctx.Done():
				logger.Warn("shutdown timeout: abandoning in-flight jobs")
				return nil
			case <-ticker.C:
			}
		}
		return nil
	})
	shutdownMgr.Register(func(ctx context.Context) error {
		jan.Stop()
		return nil
	})
	shutdownMgr.Register(shutdown.StopHTTPServer(srv, "api"))

	go func() {
		logger.Info("api listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	shutdownMgr.Wait()
	shutdownMgr.Shutdown()
	logger.Info("audexd stopped")
}
