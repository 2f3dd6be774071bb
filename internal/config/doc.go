// Package config loads the cinemoa client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cinemoa/config.toml
//  3. If the file doesn't exist, start from Default()
//  4. Apply CINEMOA_* environment overrides
//
// # TOML Format
//
//	api_base = "http://127.0.0.1:8080"
//	viewer_id = 7
//	request_timeout = "5s"
//	page_size = 10
//	scroll_threshold = 3
//	compact_width = 100
//	home_sections = ["popular", "closing", "recommended"]
//	log_file = "~/.local/state/cinemoa/cinemoa.log"
//	log_level = "info"
//	metrics_addr = ""
//
//	[invalidate]
//	foreground = ["search", "category"]
//	history_restore = ["search", "category", "home", "profile"]
//	min_interval = "0s"
//
// Every field is optional. An explicitly empty family list disables
// invalidation for that signal.
//
// # Environment
//
// CINEMOA_API_BASE, CINEMOA_VIEWER_ID, CINEMOA_REQUEST_TIMEOUT,
// CINEMOA_LOG_FILE, CINEMOA_LOG_LEVEL and CINEMOA_METRICS_ADDR override the
// file. They are read with envconfig.
package config
