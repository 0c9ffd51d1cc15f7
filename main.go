package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"photo-map/internal/filesystem"
	"photo-map/internal/handlers"
	"photo-map/internal/indexer"
	"photo-map/internal/logging"
	"photo-map/internal/mediatypes"
	"photo-map/internal/memory"
	"photo-map/internal/metrics"
	"photo-map/internal/middleware"
	"photo-map/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Hold back decodes while the heap is near its limit
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	pipeline, err := startup.BuildPipeline(config, monitor)
	if err != nil {
		startup.LogFatal("Failed to initialize pipeline: %v", err)
	}

	// Initialize indexer
	startup.LogIndexerInit(config.IndexInterval)
	idx := indexer.New(pipeline, config.IndexInterval)
	idx.SetOnIndexComplete(func(result *indexer.Result) {
		logging.Info("Run %s published %d clusters from %d photos",
			result.RunID, result.Stats.Clusters, result.Stats.Records)
	})

	// Start indexer in background (non-blocking)
	idx.Start()
	startup.LogIndexerStarted()

	var watcher *indexer.Watcher
	if config.WatchPhotos {
		watcher, err = indexer.NewWatcher(config.PhotosDir, config.WatchDebounce, idx.Trigger)
		if err != nil {
			logging.Warn("Photo watcher disabled: %v", err)
		} else {
			watcher.Start()
		}
	}

	collector := metrics.NewCollector(idx, config.ThumbnailDir, time.Minute)
	collector.Start()

	// Initialize handlers
	h := handlers.New(idx)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      buildHandler(router, config),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsRouter := http.NewServeMux()
		metricsRouter.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, idx, watcher, collector, monitor)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/photos", h.GetPhotos).Methods("GET")
	api.HandleFunc("/reindex", h.TriggerReindex).Methods("POST")

	// Sources, and derivatives when they live below the photos directory
	r.PathPrefix(startup.PhotosURL + "/").Handler(
		http.StripPrefix(startup.PhotosURL, photoFiles(config.PhotosDir)))
	if config.ThumbnailsSeparate {
		r.PathPrefix(startup.ThumbnailsURL + "/").Handler(
			http.StripPrefix(startup.ThumbnailsURL, photoFiles(config.ThumbnailDir)))
	}

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.StaticDir)))

	return r
}

// photoFiles serves files from dir without directory listings and without
// hidden files such as in-progress temporaries.
func photoFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if name == "" || strings.HasSuffix(name, "/") || strings.HasPrefix(path.Base(name), ".") {
			http.NotFound(w, r)
			return
		}
		if mediatypes.IsPhotoFile(name) {
			w.Header().Set("Content-Type", mediatypes.GetMimeType(mediatypes.Ext(name)))
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// buildHandler wraps the router in the middleware chain. The request ID is
// assigned first so access log lines carry it.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = router
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

func handleShutdown(srv, metricsSrv *http.Server, idx *indexer.Indexer, watcher *indexer.Watcher, collector *metrics.Collector, monitor *memory.Monitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if watcher != nil {
		watcher.Stop()
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	collector.Stop()
	monitor.Stop()

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
