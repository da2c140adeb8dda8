package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile writes a YAML config file into a temp dir and returns its path
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lisstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Server.RequestTimeout)
				assert.True(t, cfg.Server.RateLimit.Enabled)
				assert.Equal(t, 20.0, cfg.Server.RateLimit.RPS)
				assert.Equal(t, 40, cfg.Server.RateLimit.Burst)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)

				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "logs", cfg.Paths.LogsDir)

				assert.Equal(t, 4, cfg.Scan.MaxConcurrent)
				assert.Equal(t, 64, cfg.Scan.MaxBatchSize)
				assert.Equal(t, int64(256<<20), cfg.Scan.MaxUploadBytes)

				assert.False(t, cfg.Telemetry.EnableTracing)
				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
				assert.True(t, cfg.Telemetry.EnableMetrics)
				assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"LIS_SERVER_PORT":         "9090",
				"LIS_LOGGING_LEVEL":       "debug",
				"LIS_SCAN_MAX_CONCURRENT": "8",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 8, cfg.Scan.MaxConcurrent)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 7000
  rate_limit:
    enabled: false
    rps: 5
logging:
  level: warn
scan:
  max_upload_bytes: 1024
telemetry:
  trace_exporter: stdout
  enable_tracing: true
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Server.Port)
				assert.False(t, cfg.Server.RateLimit.Enabled)
				assert.Equal(t, 5.0, cfg.Server.RateLimit.RPS)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, int64(1024), cfg.Scan.MaxUploadBytes)
				assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
				assert.True(t, cfg.Telemetry.EnableTracing)
				// untouched values keep their defaults
				assert.Equal(t, 4, cfg.Scan.MaxConcurrent)
			},
		},
		{
			name: "environment wins over file",
			env:  map[string]string{"LIS_SERVER_PORT": "9500"},
			file: "server:\n  port: 7000\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9500, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"LIS_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"LIS_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "non-positive scan concurrency",
			file:    "scan:\n  max_concurrent: -1\n",
			wantErr: true,
		},
		{
			name:    "unsupported trace exporter",
			env:     map[string]string{"LIS_TELEMETRY_TRACE_EXPORTER": "jaeger"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoad_UsesConfigFileEnv(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: error\n")
	t.Setenv("LIS_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, ":8080", ServerConfig{Port: 8080}.Addr())
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()

	t.Run("derived directories", func(t *testing.T) {
		cfg := &Config{Paths: PathsConfig{DataDir: "data", LogsDir: "logs"}}
		paths, err := cfg.ResolvePaths(base)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
		assert.Equal(t, filepath.Join(base, "data", "uploads"), paths.UploadsDir)
		assert.Equal(t, filepath.Join(base, "data", "exports"), paths.ExportsDir)
		assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
		assert.Equal(t, filepath.Join(base, "data", "exports", "a.csv"), paths.GetExportPath("a.csv"))
	})

	t.Run("absolute overrides", func(t *testing.T) {
		other := t.TempDir()
		cfg := &Config{Paths: PathsConfig{
			DataDir:    "data",
			LogsDir:    "logs",
			UploadsDir: filepath.Join(other, "in"),
			ExportsDir: "out",
		}}
		paths, err := cfg.ResolvePaths(base)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(other, "in"), paths.UploadsDir)
		assert.Equal(t, filepath.Join(base, "out"), paths.ExportsDir)
	})

	t.Run("ensure directories", func(t *testing.T) {
		cfg := &Config{Paths: PathsConfig{DataDir: "d", LogsDir: "l"}}
		paths, err := cfg.ResolvePaths(base)
		require.NoError(t, err)
		require.NoError(t, paths.EnsureDirectories())

		for _, dir := range []string{paths.DataDir, paths.UploadsDir, paths.ExportsDir, paths.LogsDir} {
			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		}
	})
}
