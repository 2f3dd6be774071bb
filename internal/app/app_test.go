package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/config"
	"github.com/daeyeon-lee/cinemoa/internal/devserver"
	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

func newEngine(t *testing.T, dev *devserver.Server) (*Engine, *prometheus.Registry) {
	t.Helper()
	server := httptest.NewServer(dev)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.APIBase = server.URL
	cfg.RequestTimeout = 2 * time.Second
	cfg.PageSize = 4

	reg := prometheus.NewRegistry()
	engine, err := NewEngine(cfg, reg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	return engine, reg
}

func TestPreloadSets_ProfileListsNeedViewer(t *testing.T) {
	t.Parallel()

	anonymous := PreloadSets([]string{"popular", "closing"}, 0)
	if len(anonymous) != 2 {
		t.Fatalf("anonymous preload = %d sets, want 2", len(anonymous))
	}
	viewer := PreloadSets([]string{"popular"}, 7)
	if len(viewer) != 1+len(ProfileSections) {
		t.Fatalf("viewer preload = %d sets, want %d", len(viewer), 1+len(ProfileSections))
	}
	for _, set := range viewer[1:] {
		if set.Family != filter.FamilyProfile || set.ViewerID != 7 {
			t.Fatalf("profile set = %+v", set)
		}
	}
}

func TestPreload_FillsCacheForEverySection(t *testing.T) {
	t.Parallel()

	engine, reg := newEngine(t, devserver.New(devserver.Options{Logger: zerolog.Nop()}))
	sets := PreloadSets([]string{"popular", "closing", "recommended"}, 3)

	if err := Preload(context.Background(), engine.Fetcher, sets, zerolog.Nop()); err != nil {
		t.Fatalf("Preload returned error: %v", err)
	}
	for _, set := range sets {
		if _, ok := engine.Cache.Get(set.Signature()); !ok {
			t.Fatalf("signature %s not cached after preload", set.Signature())
		}
	}
	popular, _ := engine.Cache.Get(filter.Home("popular", 3).Signature())
	if popular.Len() != 4 || !popular.HasNext() {
		t.Fatalf("popular entry = %d items has-next=%v, want one page of 4", popular.Len(), popular.HasNext())
	}
	if n := testutil.CollectAndCount(reg, "cinemoa_page_fetches_total"); n == 0 {
		t.Fatal("preload recorded no fetch metrics")
	}
}

func TestPreload_FailuresAreJoinedNotFatal(t *testing.T) {
	t.Parallel()

	engine, _ := newEngine(t, devserver.New(devserver.Options{Logger: zerolog.Nop()}))
	sets := PreloadSets([]string{"popular", "trending"}, 0)

	err := Preload(context.Background(), engine.Fetcher, sets, zerolog.Nop())
	if err == nil {
		t.Fatal("Preload returned nil error for an unknown section")
	}
	if _, ok := engine.Cache.Get(filter.Home("popular", 0).Signature()); !ok {
		t.Fatal("healthy section was not cached next to the failing one")
	}
	if _, ok := engine.Cache.Get(filter.Home("trending", 0).Signature()); ok {
		t.Fatal("failing section has a cached entry")
	}
}

func TestEngine_LikeUpdatesPreloadedSections(t *testing.T) {
	t.Parallel()

	dev := devserver.New(devserver.Options{Logger: zerolog.Nop()})
	engine, _ := newEngine(t, dev)
	ctx := context.Background()
	sets := PreloadSets([]string{"popular", "closing", "recommended"}, 0)
	if err := Preload(ctx, engine.Fetcher, sets, zerolog.Nop()); err != nil {
		t.Fatalf("Preload returned error: %v", err)
	}

	popular, _ := engine.Cache.Get(sets[0].Signature())
	target := popular.Items()[0]
	res, err := engine.Likes.Toggle(ctx, target.ID, 5)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if !res.Liked || res.Copies == 0 || !dev.Liked(target.ID, 5) {
		t.Fatalf("Toggle result = %+v, server liked=%v", res, dev.Liked(target.ID, 5))
	}
	for _, set := range sets {
		entry, _ := engine.Cache.Get(set.Signature())
		if it, ok := entry.Find(target.ID); ok && (!it.Liked || it.LikeCount != target.LikeCount+1) {
			t.Fatalf("%s copy = liked %v count %d, want liked count %d", set.Section, it.Liked, it.LikeCount, target.LikeCount+1)
		}
	}
}

func TestPreload_CancelledContextSkipsQueuedLoads(t *testing.T) {
	t.Parallel()

	engine, _ := newEngine(t, devserver.New(devserver.Options{Logger: zerolog.Nop()}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Preload(ctx, engine.Fetcher, PreloadSets([]string{"popular", "closing"}, 0), zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Preload error = %v, want context.Canceled", err)
	}
	if sigs := engine.Cache.Signatures(); len(sigs) != 0 {
		t.Fatalf("cached signatures = %v, want none", sigs)
	}
}
