package listing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

type fakeSearcher struct {
	mu      sync.Mutex
	pages   map[string]Page
	fail    map[string]int
	gates   map[string]chan struct{}
	started chan string
	calls   []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		pages: make(map[string]Page),
		fail:  make(map[string]int),
		gates: make(map[string]chan struct{}),
	}
}

func (s *fakeSearcher) Search(ctx context.Context, _ filter.FilterSet, cursor string) (Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cursor)
	gate := s.gates[cursor]
	started := s.started
	failing := s.fail[cursor] > 0
	if failing {
		s.fail[cursor]--
	}
	page := s.pages[cursor]
	s.mu.Unlock()

	if started != nil {
		started <- cursor
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	if failing {
		return Page{}, errors.New("connection reset")
	}
	return page, nil
}

func (s *fakeSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func items(ids ...int64) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{Kind: KindFunding, ID: id, Title: "funding", LikeCount: 10, Funding: &FundingDetail{CinemaName: "CGV"}}
	}
	return out
}

func ids(entry Entry) []int64 {
	var out []int64
	for _, it := range entry.Items() {
		out = append(out, it.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func seed(t *testing.T, c *Cache, sig filter.Signature, list ...Item) {
	t.Helper()
	req, skip := c.begin(sig, "")
	if skip {
		t.Fatalf("begin(%q) skipped", sig)
	}
	if got := c.apply(req, Page{Items: list}); got != OutcomeApplied {
		t.Fatalf("apply(%q) = %s, want applied", sig, got)
	}
}

func TestFetcher_OutOfOrderPagesApplyInCursorOrder(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher()
	s.pages[""] = Page{Items: items(1, 2, 3), NextCursor: "c1", HasNext: true}
	s.pages["c1"] = Page{Items: items(4, 5, 6)}
	s.gates[""] = make(chan struct{})
	s.gates["c1"] = make(chan struct{})

	f := NewFetcher(NewCache(), s, zerolog.Nop(), nil)
	sig := filter.FilterSet{Query: "abc"}.Signature()
	ctx := context.Background()

	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() { _, err := f.EnsurePage(ctx, sig, ""); first <- err }()
	go func() { _, err := f.EnsurePage(ctx, sig, "c1"); second <- err }()

	close(s.gates["c1"])
	if err := <-second; err != nil {
		t.Fatalf("EnsurePage(c1) returned error: %v", err)
	}
	if _, ok := f.Get(sig); ok {
		t.Fatal("entry visible before its first page landed")
	}

	close(s.gates[""])
	if err := <-first; err != nil {
		t.Fatalf("EnsurePage(first) returned error: %v", err)
	}

	entry, ok := f.Get(sig)
	if !ok {
		t.Fatal("entry missing after both pages")
	}
	if got, want := ids(entry), []int64{1, 2, 3, 4, 5, 6}; !equalIDs(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	if len(entry.Pages) != 2 || entry.Pages[1].Cursor != "c1" {
		t.Fatalf("pages = %#v, want two pages ending with cursor c1", entry.Pages)
	}
	if entry.HasNext() {
		t.Fatal("HasNext() = true after last page")
	}
}

func TestFetcher_RetryAfterFailureDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher()
	s.pages[""] = Page{Items: items(1, 2, 3), NextCursor: "c1", HasNext: true}
	s.pages["c1"] = Page{Items: items(3, 4, 5)}
	s.fail["c1"] = 1

	f := NewFetcher(NewCache(), s, zerolog.Nop(), nil)
	sig := filter.FilterSet{Regions: []string{"서울"}}.Signature()
	ctx := context.Background()

	if _, err := f.Load(ctx, sig); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	entry, err := f.EnsurePage(ctx, sig, "c1")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("EnsurePage error = %v, want *FetchError", err)
	}
	if !fetchErr.Retryable() || fetchErr.Cursor != "c1" {
		t.Fatalf("FetchError = %+v, want retryable for cursor c1", fetchErr)
	}
	if entry.Len() != 3 {
		t.Fatalf("entry changed on failure: %v", ids(entry))
	}

	for i := 0; i < 2; i++ {
		entry, err = f.EnsurePage(ctx, sig, "c1")
		if err != nil {
			t.Fatalf("retry %d returned error: %v", i, err)
		}
	}
	if got, want := ids(entry), []int64{1, 2, 3, 4, 5}; !equalIDs(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	if got := s.callCount(); got != 3 {
		t.Fatalf("search calls = %d, want 3 (consumed cursor is not refetched)", got)
	}
}

func TestFetcher_LoadHitsCacheUntilStale(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher()
	s.pages[""] = Page{Items: items(1, 2), NextCursor: "c1", HasNext: true}
	s.pages["c1"] = Page{Items: items(3)}

	c := NewCache()
	f := NewFetcher(c, s, zerolog.Nop(), nil)
	sig := filter.Home("popular", 7).Signature()
	ctx := context.Background()

	if _, err := f.Load(ctx, sig); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, err := f.EnsurePage(ctx, sig, "c1"); err != nil {
		t.Fatalf("EnsurePage returned error: %v", err)
	}
	if _, err := f.Load(ctx, sig); err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if got := s.callCount(); got != 2 {
		t.Fatalf("search calls = %d, want 2", got)
	}

	s.mu.Lock()
	s.pages[""] = Page{Items: items(9, 1)}
	s.mu.Unlock()

	if got := c.MarkStale(filter.FamilyHome); got != 1 {
		t.Fatalf("MarkStale = %d, want 1", got)
	}
	stale, _ := f.Get(sig)
	if !stale.Stale || stale.Len() != 3 {
		t.Fatalf("stale entry = %+v, want old pages kept with Stale set", stale)
	}

	// The cursor is ignored for a stale entry; the first page is refetched.
	fresh, err := f.EnsurePage(ctx, sig, "c1")
	if err != nil {
		t.Fatalf("EnsurePage on stale entry returned error: %v", err)
	}
	if fresh.Stale || len(fresh.Pages) != 1 {
		t.Fatalf("fresh entry = %+v, want one fresh page", fresh)
	}
	if got, want := ids(fresh), []int64{9, 1}; !equalIDs(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	if fresh.Generation == stale.Generation {
		t.Fatal("generation unchanged after replace")
	}
}

func TestFetcher_DiscardsResponseFromOutdatedGeneration(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher()
	s.pages[""] = Page{Items: items(1), NextCursor: "c1", HasNext: true}
	s.pages["c1"] = Page{Items: items(2)}

	c := NewCache()
	f := NewFetcher(c, s, zerolog.Nop(), nil)
	sig := filter.Default().Signature()
	ctx := context.Background()

	if _, err := f.Load(ctx, sig); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	s.mu.Lock()
	s.gates["c1"] = make(chan struct{})
	s.started = make(chan string, 1)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { _, err := f.EnsurePage(ctx, sig, "c1"); done <- err }()
	<-s.started
	c.MarkStale(filter.FamilySearch)
	close(s.gates["c1"])
	if err := <-done; err != nil {
		t.Fatalf("EnsurePage returned error: %v", err)
	}

	entry, _ := c.Get(sig)
	if !entry.Stale || entry.Len() != 1 {
		t.Fatalf("entry = %v stale=%v, want the late page discarded", ids(entry), entry.Stale)
	}
}

func TestFetcher_InvalidSignatureIsNotRetryable(t *testing.T) {
	t.Parallel()

	f := NewFetcher(NewCache(), newFakeSearcher(), zerolog.Nop(), nil)
	_, err := f.EnsurePage(context.Background(), "bogus", "")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Retryable() {
		t.Fatalf("error = %v, want non-retryable *FetchError", err)
	}
	if !errors.Is(err, filter.ErrInvalidSignature) {
		t.Fatalf("error = %v, want ErrInvalidSignature in chain", err)
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	c := NewCache()
	sig := filter.Default().Signature()
	seed(t, c, sig, items(1)...)

	entry, _ := c.Get(sig)
	entry.Pages[0].Items[0].Liked = true
	entry.Pages[0].Items[0].Funding.CinemaName = "changed"

	again, _ := c.Get(sig)
	it := again.Pages[0].Items[0]
	if it.Liked || it.Funding.CinemaName != "CGV" {
		t.Fatalf("cached item mutated through a copy: %+v", it)
	}
}

func TestCache_MarkStaleByFamily(t *testing.T) {
	t.Parallel()

	c := NewCache()
	home := filter.Home("popular", 0).Signature()
	search := filter.FilterSet{Query: "abc"}.Signature()
	seed(t, c, home, items(1)...)
	seed(t, c, search, items(1)...)

	if got := c.MarkStale(filter.FamilyHome); got != 1 {
		t.Fatalf("MarkStale(home) = %d, want 1", got)
	}
	if got := c.MarkStale(filter.FamilyHome); got != 0 {
		t.Fatalf("second MarkStale(home) = %d, want 0", got)
	}
	if e, _ := c.Get(home); !e.Stale {
		t.Fatal("home entry not stale")
	}
	if e, _ := c.Get(search); e.Stale {
		t.Fatal("search entry marked stale")
	}
	if got := c.MarkStale(); got != 0 {
		t.Fatalf("MarkStale() = %d, want 0", got)
	}
}

func TestCache_FlipLikeTouchesEveryCopy(t *testing.T) {
	t.Parallel()

	c := NewCache()
	home := filter.Home("popular", 0).Signature()
	search := filter.FilterSet{Query: "abc"}.Signature()
	seed(t, c, home, items(42, 7)...)
	seed(t, c, search, items(3, 42)...)

	prev, touches := c.FlipLike(42, false)
	if prev {
		t.Fatal("resolved prev = true, want false")
	}
	if len(touches) != 2 {
		t.Fatalf("touches = %d, want 2", len(touches))
	}
	for _, sig := range []filter.Signature{home, search} {
		e, _ := c.Get(sig)
		it, _ := e.Find(42)
		if !it.Liked || it.LikeCount != 11 {
			t.Fatalf("%s copy = %+v, want liked with 11", sig, it.LikeState())
		}
	}

	if got := c.Revert(touches); got != 2 {
		t.Fatalf("Revert = %d, want 2", got)
	}
	for _, sig := range []filter.Signature{home, search} {
		e, _ := c.Get(sig)
		it, _ := e.Find(42)
		if it.LikeState() != (LikeState{Liked: false, Count: 10}) {
			t.Fatalf("%s copy after revert = %+v", sig, it.LikeState())
		}
	}
}

func TestCache_RevertSkipsCopiesChangedSince(t *testing.T) {
	t.Parallel()

	c := NewCache()
	sig := filter.Default().Signature()
	seed(t, c, sig, items(5)...)

	_, first := c.FlipLike(5, false)
	_, second := c.FlipLike(5, false)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("touches = %d/%d, want 1/1", len(first), len(second))
	}

	// The second flip already moved the copy back, so the first revert has
	// nothing to restore and must not move the count again.
	if got := c.Revert(first); got != 0 {
		t.Fatalf("Revert(first) = %d, want 0", got)
	}
	state, _ := c.Lookup(5)
	if state != (LikeState{Liked: false, Count: 10}) {
		t.Fatalf("state = %+v, want unliked with 10", state)
	}
}

func TestCache_FlipLikeUnknownItemUsesAssumed(t *testing.T) {
	t.Parallel()

	c := NewCache()
	prev, touches := c.FlipLike(99, true)
	if !prev || len(touches) != 0 {
		t.Fatalf("FlipLike = %v, %d touches; want assumed true and none", prev, len(touches))
	}
	if _, ok := c.Lookup(99); ok {
		t.Fatal("Lookup found an item that was never cached")
	}
}

func TestFetcher_HasNextWithoutCursorEndsListing(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher()
	s.pages[""] = Page{Items: items(1, 2), HasNext: true}
	f := NewFetcher(NewCache(), s, zerolog.Nop(), nil)
	sig := filter.Default().Signature()

	entry, err := f.EnsurePage(context.Background(), sig, "")
	if err != nil {
		t.Fatalf("EnsurePage returned error: %v", err)
	}
	if entry.HasNext() {
		t.Fatal("entry reports a next page it has no cursor for")
	}
	if _, err := f.EnsurePage(context.Background(), sig, entry.NextCursor()); err != nil {
		t.Fatalf("second EnsurePage returned error: %v", err)
	}
	if got := s.callCount(); got != 1 {
		t.Fatalf("searcher calls = %d, want 1", got)
	}
}
