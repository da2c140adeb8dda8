// Package config loads lisstat configuration.
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority), prefixed with LIS_
//  2. A YAML configuration file (LIS_CONFIG_FILE, default lisstat.yaml)
//  3. Default values from struct tags (lowest priority)
//
// Examples:
//
//	LIS_SERVER_PORT=9000
//	LIS_LOGGING_LEVEL=debug
//	LIS_SCAN_MAX_CONCURRENT=8
//	LIS_TELEMETRY_TRACE_EXPORTER=stdout
//
// Paths are resolved relative to a base directory by ResolvePaths and created
// on demand by Paths.EnsureDirectories.
package config
