// Package config handles configuration loading for the sentinel CLI tools.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; a missing file falls
// back to defaults so the tools work against a local backend out of the box.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SENTINEL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/sentinel/cli.yaml
//  3. ~/.config/sentinel/cli.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  base_url: "${SENTINEL_API_URL}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	poll:
//	  interval: "15s"
//	search:
//	  debounce: "300ms"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  base_url: "http://localhost:8000/api"
//	  ws_url: "ws://localhost:8000"   # derived from base_url when omitted
//	  request_timeout: "10s"
//
// Store bounds:
//
//	store:
//	  log_window: 50   # behavior-log entries kept
//	  toast_cap: 5     # push-notification toasts kept
//
// Snapshot cache:
//
//	cache:
//	  path: "~/.local/share/sentinel/snapshots.db"
//
// Metrics (optional Prometheus listener):
//
//	metrics:
//	  enabled: true
//	  addr: "127.0.0.1:9464"
package config
