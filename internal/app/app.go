package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/api"
	"github.com/daeyeon-lee/cinemoa/internal/config"
	"github.com/daeyeon-lee/cinemoa/internal/lifecycle"
	"github.com/daeyeon-lee/cinemoa/internal/like"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
	"github.com/daeyeon-lee/cinemoa/internal/logging"
	"github.com/daeyeon-lee/cinemoa/internal/metrics"
	"github.com/daeyeon-lee/cinemoa/internal/prefs"
	"github.com/daeyeon-lee/cinemoa/internal/ui"
)

const preloadTimeout = 5 * time.Second

// Options configure the cinemoa application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/cinemoa/prefs.toml
	APIBase    string // overrides the configured api_base
	ViewerID   int64  // overrides the configured viewer_id when positive
}

// Engine bundles the listing core shared by every view.
type Engine struct {
	Client      *api.Client
	Cache       *listing.Cache
	Fetcher     *listing.Fetcher
	Likes       *like.Coordinator
	Invalidator *lifecycle.Invalidator
	Metrics     *metrics.Metrics
}

// NewEngine wires the client, cache, fetcher, like coordinator and lifecycle
// invalidator for cfg. reg may be nil.
func NewEngine(cfg config.Config, reg prometheus.Registerer, log zerolog.Logger) (*Engine, error) {
	client, err := api.NewClient(cfg.APIBase, api.Options{Timeout: cfg.RequestTimeout, PageSize: cfg.PageSize})
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	m := metrics.New(reg)
	cache := listing.NewCache()

	inv := lifecycle.DefaultOptions()
	inv.Foreground = cfg.Invalidate.Foreground
	inv.HistoryRestore = cfg.Invalidate.HistoryRestore
	inv.MinInterval = cfg.Invalidate.MinInterval
	inv.Logger = log
	inv.Metrics = m

	return &Engine{
		Client:      client,
		Cache:       cache,
		Fetcher:     listing.NewFetcher(cache, client, log, m),
		Likes:       like.NewCoordinator(cache, client, log, m),
		Invalidator: lifecycle.New(cache, inv),
		Metrics:     m,
	}, nil
}

// Run boots the cinemoa TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIBase != "" {
		cfg.APIBase = opts.APIBase
	}
	if opts.ViewerID > 0 {
		cfg.ViewerID = opts.ViewerID
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	log, closer, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = closer.Close() }()

	reg := prometheus.NewRegistry()

	engine, err := NewEngine(cfg, reg, log)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, log)
	}

	// SIGCONT arrives when the process resumes after a job-control stop.
	signals := make(chan lifecycle.Signal, 1)
	go forwardResume(ctx, signals)
	go engine.Invalidator.Run(ctx, signals)

	preloadCtx, cancel := context.WithTimeout(ctx, preloadTimeout)
	err = Preload(preloadCtx, engine.Fetcher, PreloadSets(cfg.HomeSections, cfg.ViewerID), log)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("preload incomplete")
	}

	return ui.Run(ui.Options{
		Context:         ctx,
		Fetcher:         engine.Fetcher,
		Likes:           engine.Likes,
		Invalidator:     engine.Invalidator,
		ViewerID:        cfg.ViewerID,
		HomeSections:    cfg.HomeSections,
		ProfileSections: ProfileSections,
		ScrollThreshold: cfg.ScrollThreshold,
		CompactWidth:    cfg.CompactWidth,
		Prefs:           userPrefs,
		PrefsPath:       opts.PrefsPath,
		LogPath:         cfg.LogFile,
		Logger:          log,
	})
}

func forwardResume(ctx context.Context, out chan<- lifecycle.Signal) {
	resumed := make(chan os.Signal, 1)
	signal.Notify(resumed, syscall.SIGCONT)
	defer signal.Stop(resumed)
	for {
		select {
		case <-ctx.Done():
			return
		case <-resumed:
			select {
			case out <- lifecycle.SignalForeground:
			default:
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("metrics server stopped")
	}
}
