package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/updraft-io/updraft/pkg/observability"
)

// TestLoadConfig_Defaults tests that defaults produce a valid configuration
func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Paths.PluginsDir)
	assert.NotEmpty(t, cfg.Paths.StagingDir)
	assert.NotEqual(t, cfg.Paths.PluginsDir, cfg.Paths.StagingDir)
	assert.Equal(t, 4, cfg.Updater.LoadConcurrency)
	assert.Equal(t, "127.0.0.1:9090", cfg.Diag.Addr)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

// TestLoadConfig_EnvOverrides tests environment variable overrides
func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("UPDRAFT_PLUGINS_DIR", "/opt/ide/plugins")
	t.Setenv("UPDRAFT_STAGING_DIR", "/opt/ide/staged")
	t.Setenv("UPDRAFT_HOST_BUILD", "243.100")
	t.Setenv("UPDRAFT_LOAD_CONCURRENCY", "8")
	t.Setenv("UPDRAFT_LOG_LEVEL", "debug")
	t.Setenv("UPDRAFT_DIAG_READ_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/opt/ide/plugins", cfg.Paths.PluginsDir)
	assert.Equal(t, "/opt/ide/staged", cfg.Paths.StagingDir)
	assert.Equal(t, "243.100", cfg.Updater.HostBuild)
	assert.Equal(t, 8, cfg.Updater.LoadConcurrency)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Diag.ReadTimeout)
}

// TestValidate tests rejection of broken configurations
func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Paths: PathsConfig{
				PluginsDir: "/a/plugins",
				StagingDir: "/a/staged",
			},
			Updater: UpdaterConfig{LoadConcurrency: 4},
			Diag:    DiagConfig{Addr: "127.0.0.1:9090"},
		}
	}

	ok := base()
	assert.NoError(t, ok.Validate())

	sameDirs := base()
	sameDirs.Paths.StagingDir = sameDirs.Paths.PluginsDir
	assert.Error(t, sameDirs.Validate())

	noConcurrency := base()
	noConcurrency.Updater.LoadConcurrency = 0
	assert.Error(t, noConcurrency.Validate())

	noAddr := base()
	noAddr.Diag.Addr = ""
	assert.Error(t, noAddr.Validate())

	otelNoEndpoint := base()
	otelNoEndpoint.Observability.OTelEnabled = true
	otelNoEndpoint.Observability.OTelServiceName = "updraft"
	assert.Error(t, otelNoEndpoint.Validate())
}

// TestParseLogLevel tests the level string mapping
func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("junk"))
}
