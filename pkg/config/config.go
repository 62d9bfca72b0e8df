package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/updraft-io/updraft/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Paths into the host installation
	Paths PathsConfig

	// Update pipeline tuning
	Updater UpdaterConfig

	// Diagnostics HTTP server
	Diag DiagConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// PathsConfig locates the host's plugin layout on disk
type PathsConfig struct {
	PluginsDir      string
	StagingDir      string
	DisabledFile    string
	BrokenFile      string
	HistoryDBPath   string
}

// UpdaterConfig holds update pipeline settings
type UpdaterConfig struct {
	// HostBuild is the build number of the host IDE the updates must be
	// compatible with.
	HostBuild string

	// LoadConcurrency bounds the parallel descriptor loads.
	LoadConcurrency int
}

// DiagConfig holds the diagnostics server settings
type DiagConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Paths:         loadPathsConfig(),
		Updater:       loadUpdaterConfig(),
		Diag:          loadDiagConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadPathsConfig() PathsConfig {
	root := getEnv("UPDRAFT_ROOT", filepath.Join(os.TempDir(), "updraft"))

	return PathsConfig{
		PluginsDir:    getEnv("UPDRAFT_PLUGINS_DIR", filepath.Join(root, "plugins")),
		StagingDir:    getEnv("UPDRAFT_STAGING_DIR", filepath.Join(root, "staged-updates")),
		DisabledFile:  getEnv("UPDRAFT_DISABLED_FILE", filepath.Join(root, "disabled_plugins.txt")),
		BrokenFile:    getEnv("UPDRAFT_BROKEN_FILE", filepath.Join(root, "broken_plugins.yaml")),
		HistoryDBPath: getEnv("UPDRAFT_HISTORY_DB", filepath.Join(root, "update_history.db")),
	}
}

func loadUpdaterConfig() UpdaterConfig {
	return UpdaterConfig{
		HostBuild:       getEnv("UPDRAFT_HOST_BUILD", ""),
		LoadConcurrency: getEnvInt("UPDRAFT_LOAD_CONCURRENCY", 4),
	}
}

func loadDiagConfig() DiagConfig {
	return DiagConfig{
		Addr:            getEnv("UPDRAFT_DIAG_ADDR", "127.0.0.1:9090"),
		ReadTimeout:     getEnvDuration("UPDRAFT_DIAG_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("UPDRAFT_DIAG_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("UPDRAFT_DIAG_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("UPDRAFT_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("UPDRAFT_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("UPDRAFT_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("UPDRAFT_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("UPDRAFT_OTEL_SERVICE_NAME", "updraft"),
		OTelServiceVersion: getEnv("UPDRAFT_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("UPDRAFT_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Paths.PluginsDir == "" {
		return fmt.Errorf("plugins directory is required")
	}
	if c.Paths.StagingDir == "" {
		return fmt.Errorf("staging directory is required")
	}
	if c.Paths.PluginsDir == c.Paths.StagingDir {
		return fmt.Errorf("plugins directory and staging directory must be different")
	}

	if c.Updater.LoadConcurrency <= 0 {
		return fmt.Errorf("load concurrency must be positive")
	}

	if c.Diag.Addr == "" {
		return fmt.Errorf("diagnostics address is required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
