package config

import "lisstat/pkg/contracts"

// AppVersion follows the version stamped into the binary
var AppVersion = contracts.Version

// Application constants
const (
	AppName = "lisstat"

	// EnvPrefix namespaces every environment variable read by envconfig
	EnvPrefix = "LIS"

	// DefaultConfigFile is read when LIS_CONFIG_FILE is not set
	DefaultConfigFile = "lisstat.yaml"

	// ReportExtension is the extension of ATP list files
	ReportExtension = ".lis"

	// Default directories relative to the data directory
	DefaultUploadsSubdir = "uploads"
	DefaultExportsSubdir = "exports"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
