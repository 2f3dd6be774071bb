// Package app is the composition root of the cinemoa client.
//
// # Overview
//
// Run wires configuration, preferences, logging, metrics, the listing
// engine and the UI, then blocks until the user exits or the context is
// cancelled.
//
// # Startup
//
//  1. Load ~/.config/cinemoa/config.toml and CINEMOA_* overrides
//  2. Load ~/.config/cinemoa/prefs.toml (theme, default sort)
//  3. Open the log file; the terminal belongs to the UI
//  4. Build the Engine: api.Client, listing.Cache, listing.Fetcher,
//     like.Coordinator and lifecycle.Invalidator over one cache
//  5. Serve /metrics when metrics_addr is set
//  6. Forward SIGCONT to the invalidator as the foreground signal
//  7. Preload home sections and profile lists concurrently
//  8. Start the TUI
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> NewEngine()     Client, Cache, Fetcher, Coordinator, Invalidator
//	       ├─────> Preload()       errgroup, first page of each section
//	       └─────> ui.Run()        views read the cache through the Fetcher
//
// # Error Handling
//
// Invalid configuration and an unusable log file are fatal. Preload
// failures are logged; the affected view fetches again when opened.
package app
