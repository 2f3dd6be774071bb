// Package lifecycle turns host lifecycle signals into lazy cache
// invalidation.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/metrics"
)

// Signal names a lifecycle event.
type Signal string

const (
	SignalForeground     Signal = "foreground-regained"
	SignalHistoryRestore Signal = "history-restore"
)

// ParseSignal accepts one of the two signal names.
func ParseSignal(value string) (Signal, error) {
	switch s := Signal(value); s {
	case SignalForeground, SignalHistoryRestore:
		return s, nil
	default:
		return "", fmt.Errorf("unknown lifecycle signal %q", value)
	}
}

// Marker is the part of listing.Cache the invalidator needs.
type Marker interface {
	MarkStale(families ...filter.Family) int
}

// Options configures an Invalidator.
type Options struct {
	Foreground     []filter.Family
	HistoryRestore []filter.Family
	// MinInterval collapses repeats of the same signal arriving sooner than
	// this. Zero disables throttling.
	MinInterval time.Duration
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
}

// DefaultOptions marks search and category browse on foreground and
// everything on history restore.
func DefaultOptions() Options {
	return Options{
		Foreground:     []filter.Family{filter.FamilySearch, filter.FamilyCategory},
		HistoryRestore: filter.Families(),
		Logger:         zerolog.Nop(),
	}
}

// Invalidator marks configured signature families stale when a signal
// arrives. It never fetches; stale entries refresh on their next read.
type Invalidator struct {
	marker   Marker
	families map[Signal][]filter.Family
	interval time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu   sync.Mutex
	last map[Signal]time.Time
}

// New returns an invalidator over marker.
func New(marker Marker, opts Options) *Invalidator {
	return &Invalidator{
		marker: marker,
		families: map[Signal][]filter.Family{
			SignalForeground:     slices.Clone(opts.Foreground),
			SignalHistoryRestore: slices.Clone(opts.HistoryRestore),
		},
		interval: opts.MinInterval,
		log:      opts.Logger.With().Str("component", "lifecycle").Logger(),
		metrics:  opts.Metrics,
		now:      time.Now,
		last:     make(map[Signal]time.Time),
	}
}

// OnForegroundRegained handles the foreground signal.
func (i *Invalidator) OnForegroundRegained() int {
	return i.Notify(SignalForeground)
}

// OnHistoryRestore handles the history restore signal.
func (i *Invalidator) OnHistoryRestore() int {
	return i.Notify(SignalHistoryRestore)
}

// Notify marks the families configured for sig and returns the number of
// entries that became stale.
func (i *Invalidator) Notify(sig Signal) int {
	families := i.families[sig]
	if len(families) == 0 {
		return 0
	}
	if i.throttled(sig) {
		i.log.Debug().Str("signal", string(sig)).Msg("signal throttled")
		return 0
	}

	marked := i.marker.MarkStale(families...)
	i.metrics.ObserveStale(string(sig), marked)
	i.log.Info().
		Str("signal", string(sig)).
		Strs("families", familyNames(families)).
		Int("marked", marked).
		Msg("cache invalidated")
	return marked
}

func (i *Invalidator) throttled(sig Signal) bool {
	if i.interval <= 0 {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	now := i.now()
	if last, ok := i.last[sig]; ok && now.Sub(last) < i.interval {
		return true
	}
	i.last[sig] = now
	return false
}

// Run consumes signals until ctx is done or signals is closed.
func (i *Invalidator) Run(ctx context.Context, signals <-chan Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			i.Notify(sig)
		}
	}
}

func familyNames(families []filter.Family) []string {
	out := make([]string, len(families))
	for idx, f := range families {
		out[idx] = string(f)
	}
	return out
}
