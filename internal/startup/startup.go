package startup

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"photo-map/internal/cluster"
	"photo-map/internal/indexer"
	"photo-map/internal/logging"
	"photo-map/internal/media"
	"photo-map/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

const (
	// PhotosURL is the URL prefix sources are served under.
	PhotosURL = "/photos"
	// ThumbnailsURL serves derivatives stored outside the photos directory.
	ThumbnailsURL = "/thumbnails"
)

// Config holds all application configuration
type Config struct {
	PhotosDir       string
	ThumbnailDir    string
	StaticDir       string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	IndexInterval   time.Duration
	LogStaticFiles  bool
	LogHealthChecks bool

	ThumbnailSize    int
	NormalizeSize    int
	JPEGQuality      int
	NormalizeSources bool
	WriteSidecars    bool

	ClusterThreshold float64
	ClusterMode      cluster.Mode

	Fallback           media.Coordinate
	HonorHemisphereRef bool

	FileTimeout time.Duration
	Workers     int

	// WatchPhotos starts a run when photos change, after WatchDebounce of quiet.
	WatchPhotos   bool
	WatchDebounce time.Duration

	// ThumbnailURL is the URL prefix derivatives are served under. It is
	// below PhotosURL when the thumbnail directory is inside the photos
	// directory.
	ThumbnailURL string
	// ThumbnailsSeparate is true when the thumbnail directory needs its
	// own static route.
	ThumbnailsSeparate bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	photosDir := getEnv("PHOTOS_DIR", "./public/photos")
	thumbnailDir := getEnv("THUMBNAIL_DIR", filepath.Join(photosDir, "thumbnails"))
	staticDir := getEnv("STATIC_DIR", "./static")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")

	config := &Config{
		Port:               port,
		MetricsPort:        metricsPort,
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		IndexInterval:      getEnvDuration("INDEX_INTERVAL", 30*time.Minute),
		LogStaticFiles:     getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:    getEnvBool("LOG_HEALTH_CHECKS", true),
		ThumbnailSize:      getEnvInt("THUMBNAIL_SIZE", media.DefaultThumbnailSize),
		NormalizeSize:      getEnvInt("NORMALIZE_SIZE", media.DefaultNormalizeSize),
		JPEGQuality:        getEnvInt("JPEG_QUALITY", media.DefaultJPEGQuality),
		NormalizeSources:   getEnvBool("NORMALIZE_SOURCES", false),
		WriteSidecars:      getEnvBool("WRITE_SIDECARS", true),
		ClusterThreshold:   getEnvFloat("CLUSTER_THRESHOLD", cluster.DefaultThreshold),
		HonorHemisphereRef: getEnvBool("HONOR_GPS_REF", false),
		FileTimeout:        getEnvDuration("FILE_TIMEOUT", 30*time.Second),
		Workers:            workers.ForMixed(0),
		WatchPhotos:        getEnvBool("WATCH_PHOTOS", false),
		WatchDebounce:      getEnvDuration("WATCH_DEBOUNCE", indexer.DefaultWatchDebounce),
		Fallback: media.Coordinate{
			Latitude:  getEnvFloat("FALLBACK_LAT", media.DefaultFallback.Latitude),
			Longitude: getEnvFloat("FALLBACK_LNG", media.DefaultFallback.Longitude),
		},
	}

	mode, err := cluster.ParseMode(getEnv("CLUSTER_MODE", "first"))
	if err != nil {
		logging.Warn("  %v, using first", err)
	}
	config.ClusterMode = mode

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("  PHOTOS_DIR:          %s", photosDir)
	logging.Info("  THUMBNAIL_DIR:       %s", thumbnailDir)
	logging.Info("  STATIC_DIR:          %s", staticDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  INDEX_INTERVAL:      %v", config.IndexInterval)
	logging.Info("  THUMBNAIL_SIZE:      %d", config.ThumbnailSize)
	logging.Info("  NORMALIZE_SOURCES:   %v (size %d)", config.NormalizeSources, config.NormalizeSize)
	logging.Info("  WRITE_SIDECARS:      %v", config.WriteSidecars)
	logging.Info("  JPEG_QUALITY:        %d", config.JPEGQuality)
	logging.Info("  CLUSTER_THRESHOLD:   %v", config.ClusterThreshold)
	logging.Info("  CLUSTER_MODE:        %s", config.ClusterMode)
	logging.Info("  FALLBACK:            %v, %v", config.Fallback.Latitude, config.Fallback.Longitude)
	logging.Info("  HONOR_GPS_REF:       %v", config.HonorHemisphereRef)
	logging.Info("  FILE_TIMEOUT:        %v", config.FileTimeout)
	logging.Info("  PIPELINE_WORKERS:    %d", config.Workers)
	logging.Info("  WATCH_PHOTOS:        %v (debounce %v)", config.WatchPhotos, config.WatchDebounce)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if config.PhotosDir, err = filepath.Abs(photosDir); err != nil {
		return nil, fmt.Errorf("failed to resolve photos directory path: %w", err)
	}
	logging.Info("  Photos directory (absolute): %s", config.PhotosDir)

	if config.ThumbnailDir, err = filepath.Abs(thumbnailDir); err != nil {
		return nil, fmt.Errorf("failed to resolve thumbnail directory path: %w", err)
	}
	logging.Info("  Thumbnail directory (absolute): %s", config.ThumbnailDir)

	if config.StaticDir, err = filepath.Abs(staticDir); err != nil {
		return nil, fmt.Errorf("failed to resolve static directory path: %w", err)
	}

	if config.PhotosDir == config.ThumbnailDir {
		return nil, fmt.Errorf("THUMBNAIL_DIR must differ from PHOTOS_DIR")
	}
	config.ThumbnailURL, config.ThumbnailsSeparate = thumbnailURL(config.PhotosDir, config.ThumbnailDir)
	logging.Info("  Thumbnails served at: %s", config.ThumbnailURL)

	if err := ensureDirectory(config.PhotosDir, "photos"); err != nil {
		return nil, fmt.Errorf("photos directory error: %w", err)
	}
	if config.NormalizeSources {
		if err := config.EnableNormalization(); err != nil {
			return nil, err
		}
	}

	if err := ensureDirectory(config.ThumbnailDir, "thumbnails"); err != nil {
		return nil, fmt.Errorf("thumbnail directory error: %w", err)
	}
	logging.Debug("  Testing thumbnail directory write access...")
	if err := testWriteAccess(config.ThumbnailDir); err != nil {
		return nil, fmt.Errorf("thumbnail directory is not writable: %w", err)
	}
	logging.Info("  [OK] Thumbnail directory is writable")

	if _, err := os.Stat(config.StaticDir); err != nil {
		logging.Warn("  Static directory unavailable: %v", err)
	}

	// Summary
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Normalization: %s", enabledString(config.NormalizeSources))
	logging.Info("    Sidecars:      %s", enabledString(config.WriteSidecars))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// validate replaces out-of-range values with defaults. Only unusable
// combinations are errors.
func (c *Config) validate() error {
	if c.ThumbnailSize <= 0 {
		logging.Warn("  Invalid THUMBNAIL_SIZE %d, using default: %d", c.ThumbnailSize, media.DefaultThumbnailSize)
		c.ThumbnailSize = media.DefaultThumbnailSize
	}
	if c.NormalizeSize <= 0 {
		logging.Warn("  Invalid NORMALIZE_SIZE %d, using default: %d", c.NormalizeSize, media.DefaultNormalizeSize)
		c.NormalizeSize = media.DefaultNormalizeSize
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		logging.Warn("  Invalid JPEG_QUALITY %d, using default: %d", c.JPEGQuality, media.DefaultJPEGQuality)
		c.JPEGQuality = media.DefaultJPEGQuality
	}
	if c.ClusterThreshold < 0 || math.IsNaN(c.ClusterThreshold) || math.IsInf(c.ClusterThreshold, 0) {
		logging.Warn("  Invalid CLUSTER_THRESHOLD %v, using default: %v", c.ClusterThreshold, cluster.DefaultThreshold)
		c.ClusterThreshold = cluster.DefaultThreshold
	}
	if c.IndexInterval < 0 {
		logging.Warn("  Invalid INDEX_INTERVAL %v, using default: 30m", c.IndexInterval)
		c.IndexInterval = 30 * time.Minute
	}
	if c.FileTimeout < 0 {
		logging.Warn("  Invalid FILE_TIMEOUT %v, using default: 30s", c.FileTimeout)
		c.FileTimeout = 30 * time.Second
	}
	if !(math.Abs(c.Fallback.Latitude) <= 90) || !(math.Abs(c.Fallback.Longitude) <= 180) {
		return fmt.Errorf("fallback coordinate (%v, %v) out of range", c.Fallback.Latitude, c.Fallback.Longitude)
	}
	return nil
}

// thumbnailURL returns the URL prefix for thumbDir and whether it needs a
// route of its own.
func thumbnailURL(photosDir, thumbDir string) (string, bool) {
	rel, err := filepath.Rel(photosDir, thumbDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ThumbnailsURL, true
	}
	return PhotosURL + "/" + filepath.ToSlash(rel), false
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogIndexerInit logs indexer initialization
func LogIndexerInit(interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INDEXER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if interval > 0 {
		logging.Info("  Index interval: %v", interval)
	} else {
		logging.Info("  Periodic indexing disabled")
	}
	logging.Info("  Starting indexer...")
}

// LogIndexerStarted logs successful indexer start
func LogIndexerStarted() {
	logging.Info("  [OK] Indexer started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Prefix-only routes have no template
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Map:           http://0.0.0.0:%s", config.Port)
	logging.Info("    Photos API:    http://0.0.0.0:%s/api/photos", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __          __           __  ___
   / __ \/ /_  ____  / /_____     /  |/  /___ _____
  / /_/ / __ \/ __ \/ __/ __ \   / /|_/ / __ '/ __ \
 / ____/ / / / /_/ / /_/ /_/ /  / /  / / /_/ / /_/ /
/_/   /_/ /_/\____/\__/\____/  /_/  /_/\__,_/ .___/
                                           /_/
------------------------------------------------------------`
	logging.Info("%s", banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// EnableNormalization turns on source normalization after checking that the
// photos directory is writable.
func (c *Config) EnableNormalization() error {
	if err := testWriteAccess(c.PhotosDir); err != nil {
		return fmt.Errorf("photos directory is not writable (required for NORMALIZE_SOURCES): %w", err)
	}
	logging.Info("  [OK] Photos directory is writable")
	c.NormalizeSources = true
	return nil
}
