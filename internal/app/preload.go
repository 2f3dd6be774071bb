package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

const preloadConcurrency = 4

// ProfileSections are the viewer lists preloaded when a viewer is configured.
var ProfileSections = []string{"liked", "funded", "created"}

// PreloadSets returns the filter sets fetched before the UI starts: every
// home section, then the viewer's profile lists when viewerID is set.
func PreloadSets(homeSections []string, viewerID int64) []filter.FilterSet {
	sets := make([]filter.FilterSet, 0, len(homeSections)+len(ProfileSections))
	for _, section := range homeSections {
		sets = append(sets, filter.Home(section, viewerID))
	}
	if viewerID > 0 {
		for _, section := range ProfileSections {
			sets = append(sets, filter.Profile(section, viewerID))
		}
	}
	return sets
}

// Preload loads the first page of every set concurrently. Failures are
// logged and joined into the returned error; they never cancel the other
// loads, and the UI retries on demand. Once ctx is done the loads still
// queued are skipped and its error is joined too.
func Preload(ctx context.Context, fetcher *listing.Fetcher, sets []filter.FilterSet, log zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)

	var mu sync.Mutex
	var errs []error

	for _, set := range sets {
		sig := set.Signature()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := fetcher.Load(gctx, sig)
			if err != nil {
				log.Warn().Err(err).Str("signature", sig.String()).Msg("preload failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			log.Debug().Str("signature", sig.String()).Int("items", entry.Len()).Msg("preloaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
