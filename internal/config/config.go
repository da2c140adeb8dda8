package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Scan      ScanConfig      `yaml:"scan" envconfig:"SCAN"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"2m"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"40"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/lisstat.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// ScanConfig bounds the work a single process does on behalf of callers
type ScanConfig struct {
	MaxConcurrent  int   `yaml:"max_concurrent" envconfig:"MAX_CONCURRENT" default:"4"`
	MaxBatchSize   int   `yaml:"max_batch_size" envconfig:"MAX_BATCH_SIZE" default:"64"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"268435456"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
}

// Load loads configuration from environment variables and the default config file
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile loads configuration from environment variables merged over the given YAML file.
// A missing file is not an error.
func LoadFile(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration produced by struct defaults and the current environment
func Default() *Config {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		// Malformed env values fall back to the zero value for that field
		_ = err
	}
	return &cfg
}

// getConfigFilePath returns the config file named by LIS_CONFIG_FILE or the default
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return DefaultConfigFile
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether the variable for key was given explicitly
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// pick returns the file value unless the environment set key or the file left it empty
func pick[T comparable](key string, envValue, fileValue T) T {
	var zero T
	if envSet(key) || fileValue == zero {
		return envValue
	}
	return fileValue
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	m := envConfig

	m.Server.Host = pick("SERVER_HOST", m.Server.Host, fileConfig.Server.Host)
	m.Server.Port = pick("SERVER_PORT", m.Server.Port, fileConfig.Server.Port)
	m.Server.ReadTimeout = pick("SERVER_READ_TIMEOUT", m.Server.ReadTimeout, fileConfig.Server.ReadTimeout)
	m.Server.WriteTimeout = pick("SERVER_WRITE_TIMEOUT", m.Server.WriteTimeout, fileConfig.Server.WriteTimeout)
	m.Server.IdleTimeout = pick("SERVER_IDLE_TIMEOUT", m.Server.IdleTimeout, fileConfig.Server.IdleTimeout)
	m.Server.ShutdownTimeout = pick("SERVER_SHUTDOWN_TIMEOUT", m.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout)
	m.Server.RequestTimeout = pick("SERVER_REQUEST_TIMEOUT", m.Server.RequestTimeout, fileConfig.Server.RequestTimeout)
	m.Server.RateLimit.RPS = pick("SERVER_RATE_LIMIT_RPS", m.Server.RateLimit.RPS, fileConfig.Server.RateLimit.RPS)
	m.Server.RateLimit.Burst = pick("SERVER_RATE_LIMIT_BURST", m.Server.RateLimit.Burst, fileConfig.Server.RateLimit.Burst)

	m.Logging.Level = pick("LOGGING_LEVEL", m.Logging.Level, fileConfig.Logging.Level)
	m.Logging.Format = pick("LOGGING_FORMAT", m.Logging.Format, fileConfig.Logging.Format)
	m.Logging.Output = pick("LOGGING_OUTPUT", m.Logging.Output, fileConfig.Logging.Output)
	m.Logging.FilePath = pick("LOGGING_FILE_PATH", m.Logging.FilePath, fileConfig.Logging.FilePath)
	m.Logging.Development = pick("LOGGING_DEVELOPMENT", m.Logging.Development, fileConfig.Logging.Development)

	m.Paths.DataDir = pick("PATHS_DATA_DIR", m.Paths.DataDir, fileConfig.Paths.DataDir)
	m.Paths.UploadsDir = pick("PATHS_UPLOADS_DIR", m.Paths.UploadsDir, fileConfig.Paths.UploadsDir)
	m.Paths.ExportsDir = pick("PATHS_EXPORTS_DIR", m.Paths.ExportsDir, fileConfig.Paths.ExportsDir)
	m.Paths.LogsDir = pick("PATHS_LOGS_DIR", m.Paths.LogsDir, fileConfig.Paths.LogsDir)

	m.Scan.MaxConcurrent = pick("SCAN_MAX_CONCURRENT", m.Scan.MaxConcurrent, fileConfig.Scan.MaxConcurrent)
	m.Scan.MaxBatchSize = pick("SCAN_MAX_BATCH_SIZE", m.Scan.MaxBatchSize, fileConfig.Scan.MaxBatchSize)
	m.Scan.MaxUploadBytes = pick("SCAN_MAX_UPLOAD_BYTES", m.Scan.MaxUploadBytes, fileConfig.Scan.MaxUploadBytes)

	m.Telemetry.Environment = pick("TELEMETRY_ENVIRONMENT", m.Telemetry.Environment, fileConfig.Telemetry.Environment)
	m.Telemetry.EnableTracing = pick("TELEMETRY_ENABLE_TRACING", m.Telemetry.EnableTracing, fileConfig.Telemetry.EnableTracing)
	m.Telemetry.TraceExporter = pick("TELEMETRY_TRACE_EXPORTER", m.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter)
	m.Telemetry.SampleRatio = pick("TELEMETRY_SAMPLE_RATIO", m.Telemetry.SampleRatio, fileConfig.Telemetry.SampleRatio)

	// Booleans that default to true can only be switched off by the file when
	// the environment is silent about them.
	if !envSet("SERVER_RATE_LIMIT_ENABLED") && fileConfig.Server.RateLimit.RPS != 0 {
		m.Server.RateLimit.Enabled = fileConfig.Server.RateLimit.Enabled
	}
	if !envSet("TELEMETRY_ENABLE_METRICS") && fileConfig.Telemetry.TraceExporter != "" {
		m.Telemetry.EnableMetrics = fileConfig.Telemetry.EnableMetrics
	}

	return m
}

// validate checks value ranges and enumerations
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}

	if c.Scan.MaxConcurrent < 1 {
		return fmt.Errorf("scan.max_concurrent must be positive, got %d", c.Scan.MaxConcurrent)
	}
	if c.Scan.MaxBatchSize < 1 {
		return fmt.Errorf("scan.max_batch_size must be positive, got %d", c.Scan.MaxBatchSize)
	}
	if c.Scan.MaxUploadBytes < 1 {
		return fmt.Errorf("scan.max_upload_bytes must be positive, got %d", c.Scan.MaxUploadBytes)
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1], got %g", c.Telemetry.SampleRatio)
	}

	return nil
}
