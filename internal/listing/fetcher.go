package listing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/metrics"
)

// Searcher fetches one page of a listing.
type Searcher interface {
	Search(ctx context.Context, set filter.FilterSet, cursor string) (Page, error)
}

// FetchError reports a failed page fetch. The cache is left unchanged, so
// the same call can be retried.
type FetchError struct {
	Signature filter.Signature
	Cursor    string
	Err       error
}

func (e *FetchError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("fetch %s: %v", e.Signature, e.Err)
	}
	return fmt.Sprintf("fetch %s cursor %q: %v", e.Signature, e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether calling again may succeed.
func (e *FetchError) Retryable() bool {
	return !errors.Is(e.Err, filter.ErrInvalidSignature)
}

// Fetcher loads pages into a Cache. Concurrent requests for the same page of
// the same entry generation share one call to the Searcher.
type Fetcher struct {
	cache    *Cache
	searcher Searcher
	group    singleflight.Group
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewFetcher wires a fetcher over cache. m may be nil.
func NewFetcher(cache *Cache, searcher Searcher, log zerolog.Logger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		cache:    cache,
		searcher: searcher,
		log:      log.With().Str("component", "fetcher").Logger(),
		metrics:  m,
	}
}

// Cache returns the cache the fetcher writes to.
func (f *Fetcher) Cache() *Cache { return f.cache }

// Get is Cache.Get with lookup metrics.
func (f *Fetcher) Get(sig filter.Signature) (Entry, bool) {
	entry, ok := f.cache.Get(sig)
	switch {
	case !ok:
		f.metrics.ObserveLookup(metrics.LookupMiss)
	case entry.Stale:
		f.metrics.ObserveLookup(metrics.LookupStale)
	default:
		f.metrics.ObserveLookup(metrics.LookupHit)
	}
	return entry, ok
}

// Load returns the entry for sig, fetching the first page when the entry is
// missing or stale.
func (f *Fetcher) Load(ctx context.Context, sig filter.Signature) (Entry, error) {
	if entry, ok := f.Get(sig); ok && !entry.Stale {
		return entry, nil
	}
	return f.EnsurePage(ctx, sig, "")
}

// EnsurePage fetches the page at cursor for sig and stores it. A stale entry
// is refetched from the first page and replaced instead. Pages already
// cached are not fetched again and never duplicate items. The returned entry
// reflects the cache after the call; it has no pages while the first page is
// still outstanding.
func (f *Fetcher) EnsurePage(ctx context.Context, sig filter.Signature, cursor string) (Entry, error) {
	set, err := filter.ParseSignature(sig)
	if err != nil {
		return Entry{Signature: sig}, &FetchError{Signature: sig, Cursor: cursor, Err: err}
	}

	req, skip := f.cache.begin(sig, cursor)
	if skip {
		entry, _ := f.cache.Get(sig)
		return entry, nil
	}

	key := string(req.sig) + "\x00" + req.cursor + "\x00" + strconv.FormatUint(req.generation, 10)
	_, err, shared := f.group.Do(key, func() (any, error) {
		return nil, f.fetch(ctx, set, req)
	})
	if shared {
		f.log.Debug().Str("signature", sig.String()).Str("cursor", req.cursor).Msg("joined in-flight fetch")
	}
	if err != nil {
		entry, _ := f.cache.Get(sig)
		return entry, &FetchError{Signature: sig, Cursor: req.cursor, Err: err}
	}
	entry, _ := f.cache.Get(sig)
	return entry, nil
}

func (f *Fetcher) fetch(ctx context.Context, set filter.FilterSet, req request) error {
	family := string(req.sig.Family())
	start := time.Now()
	page, err := f.searcher.Search(ctx, set, req.cursor)
	elapsed := time.Since(start)
	if err != nil {
		f.metrics.ObserveFetch(family, metrics.FetchFailed, elapsed)
		f.log.Warn().Err(err).
			Str("signature", req.sig.String()).
			Str("cursor", req.cursor).
			Msg("page fetch failed")
		return err
	}

	outcome := f.cache.apply(req, page)
	f.metrics.ObserveFetch(family, string(outcome), elapsed)

	event := f.log.Debug()
	if outcome == OutcomeApplied {
		event = f.log.Info()
	}
	event.Str("signature", req.sig.String()).
		Str("cursor", req.cursor).
		Bool("replace", req.replace).
		Int("items", len(page.Items)).
		Bool("has_next", page.HasNext).
		Dur("elapsed", elapsed).
		Msgf("page %s", outcome)
	return nil
}
