package like

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

type mapSearcher map[filter.Signature][]listing.Item

func (m mapSearcher) Search(_ context.Context, set filter.FilterSet, _ string) (listing.Page, error) {
	return listing.Page{Items: m[set.Signature()]}, nil
}

type fakeMutator struct {
	mu      sync.Mutex
	err     error
	added   []int64
	removed []int64
}

func (m *fakeMutator) AddLike(_ context.Context, itemID, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, itemID)
	return m.err
}

func (m *fakeMutator) RemoveLike(_ context.Context, itemID, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, itemID)
	return m.err
}

type checkingMutator struct {
	fakeMutator
	liked    bool
	checkErr error
	checked  int
}

func (m *checkingMutator) LikeStatus(context.Context, int64, int64) (bool, error) {
	m.checked++
	return m.liked, m.checkErr
}

var (
	homePopular = filter.Home("popular", 0).Signature()
	searchABC   = filter.FilterSet{Query: "abc"}.Signature()
)

func funding(id int64, liked bool, count int) listing.Item {
	return listing.Item{Kind: listing.KindFunding, ID: id, Liked: liked, LikeCount: count, Funding: &listing.FundingDetail{}}
}

func loadCache(t *testing.T, data mapSearcher) *listing.Cache {
	t.Helper()
	cache := listing.NewCache()
	f := listing.NewFetcher(cache, data, zerolog.Nop(), nil)
	for sig := range data {
		if _, err := f.Load(context.Background(), sig); err != nil {
			t.Fatalf("Load(%s) returned error: %v", sig, err)
		}
	}
	return cache
}

func copies(t *testing.T, cache *listing.Cache, id int64, sigs ...filter.Signature) []listing.LikeState {
	t.Helper()
	out := make([]listing.LikeState, 0, len(sigs))
	for _, sig := range sigs {
		entry, ok := cache.Get(sig)
		if !ok {
			t.Fatalf("entry %s missing", sig)
		}
		it, ok := entry.Find(id)
		if !ok {
			t.Fatalf("item %d missing from %s", id, sig)
		}
		out = append(out, it.LikeState())
	}
	return out
}

func TestToggle_UpdatesEveryCopyAndRollsBack(t *testing.T) {
	t.Parallel()

	cache := loadCache(t, mapSearcher{
		homePopular: {funding(7, false, 1), funding(42, false, 10)},
		searchABC:   {funding(42, false, 10)},
	})
	mut := &fakeMutator{}
	c := NewCoordinator(cache, mut, zerolog.Nop(), nil)
	ctx := context.Background()

	res, err := c.Toggle(ctx, 42, 1)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if !res.Liked || res.Copies != 2 {
		t.Fatalf("Result = %+v, want liked across 2 copies", res)
	}
	for i, got := range copies(t, cache, 42, homePopular, searchABC) {
		if got != (listing.LikeState{Liked: true, Count: 11}) {
			t.Fatalf("copy %d = %+v, want liked with 11", i, got)
		}
	}
	if len(mut.added) != 1 || len(mut.removed) != 0 {
		t.Fatalf("added=%v removed=%v, want one add", mut.added, mut.removed)
	}

	// Unliking with a failing API restores the liked state exactly.
	mut.err = errors.New("503 service unavailable")
	_, err = c.Toggle(ctx, 42, 1)
	var mutErr *MutationError
	if !errors.As(err, &mutErr) {
		t.Fatalf("Toggle error = %v, want *MutationError", err)
	}
	if mutErr.Liked || mutErr.Reverted != 2 || !errors.Is(err, mut.err) {
		t.Fatalf("MutationError = %+v, want unlike attempt with 2 reverted", mutErr)
	}
	for i, got := range copies(t, cache, 42, homePopular, searchABC) {
		if got != (listing.LikeState{Liked: true, Count: 11}) {
			t.Fatalf("copy %d after rollback = %+v, want liked with 11", i, got)
		}
	}
	if len(mut.removed) != 1 {
		t.Fatalf("removed = %v, want one remove attempt", mut.removed)
	}
}

func TestToggle_FailedLikeRevertsToPreState(t *testing.T) {
	t.Parallel()

	cache := loadCache(t, mapSearcher{
		homePopular: {funding(42, false, 10)},
		searchABC:   {funding(42, false, 10)},
	})
	c := NewCoordinator(cache, &fakeMutator{err: errors.New("network down")}, zerolog.Nop(), nil)

	if _, err := c.Toggle(context.Background(), 42, 1); err == nil {
		t.Fatal("Toggle returned nil error")
	}
	for i, got := range copies(t, cache, 42, homePopular, searchABC) {
		if got != (listing.LikeState{Liked: false, Count: 10}) {
			t.Fatalf("copy %d = %+v, want unliked with 10", i, got)
		}
	}
}

func TestToggle_UncachedItem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutator   Mutator
		wantLiked bool
	}{
		{"no status checker assumes not liked", &fakeMutator{}, true},
		{"status checker says liked", &checkingMutator{liked: true}, false},
		{"status checker fails", &checkingMutator{liked: true, checkErr: errors.New("timeout")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewCoordinator(listing.NewCache(), tt.mutator, zerolog.Nop(), nil)
			res, err := c.Toggle(context.Background(), 5, 1)
			if err != nil {
				t.Fatalf("Toggle returned error: %v", err)
			}
			if res.Liked != tt.wantLiked || res.Copies != 0 {
				t.Fatalf("Result = %+v, want liked=%v with no copies", res, tt.wantLiked)
			}
		})
	}
}

func TestToggle_CachedItemSkipsStatusCheck(t *testing.T) {
	t.Parallel()

	cache := loadCache(t, mapSearcher{searchABC: {funding(42, true, 3)}})
	mut := &checkingMutator{liked: false}
	c := NewCoordinator(cache, mut, zerolog.Nop(), nil)

	res, err := c.Toggle(context.Background(), 42, 1)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if res.Liked || mut.checked != 0 {
		t.Fatalf("Result = %+v checked=%d, want unlike without status check", res, mut.checked)
	}
	if got := copies(t, cache, 42, searchABC)[0]; got != (listing.LikeState{Liked: false, Count: 2}) {
		t.Fatalf("copy = %+v, want unliked with 2", got)
	}
}
