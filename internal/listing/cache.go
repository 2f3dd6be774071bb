package listing

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

// Outcome describes what the cache did with a fetched page.
type Outcome string

const (
	// OutcomeApplied means the page was appended, or replaced a stale entry.
	OutcomeApplied Outcome = "applied"
	// OutcomeHeld means the page arrived before its predecessor and waits.
	OutcomeHeld Outcome = "held"
	// OutcomeDiscarded means the page belonged to an outdated generation or
	// to a cursor already consumed.
	OutcomeDiscarded Outcome = "discarded"
)

// Touch records one copy changed by FlipLike so it can be reverted.
type Touch struct {
	Signature filter.Signature
	Epoch     uint64
	Page      int
	Index     int
	ID        int64
	Before    LikeState
	After     LikeState
}

type record struct {
	pages  []Page
	seen   map[int64]struct{}
	held   map[string]Page
	loaded bool
	stale  bool
	// generation changes whenever in-flight responses must be ignored.
	generation uint64
	// epoch changes whenever the pages are replaced.
	epoch     uint64
	updatedAt time.Time
}

func (r *record) expected() (string, bool) {
	if !r.loaded {
		return "", true
	}
	last := r.pages[len(r.pages)-1]
	if !last.HasNext {
		return "", false
	}
	return last.NextCursor, true
}

func (r *record) consumed(cursor string) bool {
	return slices.ContainsFunc(r.pages, func(p Page) bool { return p.Cursor == cursor })
}

func (r *record) appendPage(p Page) {
	kept := make([]Item, 0, len(p.Items))
	for _, it := range p.Items {
		if _, dup := r.seen[it.ID]; dup {
			continue
		}
		r.seen[it.ID] = struct{}{}
		kept = append(kept, it.clone())
	}
	p.Items = kept
	// A next page needs a cursor to ask for it.
	if p.NextCursor == "" {
		p.HasNext = false
	}
	r.pages = append(r.pages, p)
	r.loaded = true
}

func (r *record) reset() {
	r.pages = nil
	r.seen = make(map[int64]struct{})
	r.held = make(map[string]Page)
	r.loaded = false
}

// request ties an in-flight fetch to the entry state it was issued against.
type request struct {
	sig        filter.Signature
	cursor     string
	generation uint64
	replace    bool
}

// Cache stores listing pages per signature. It is safe for concurrent use;
// every mutation happens in one critical section and never performs I/O.
type Cache struct {
	mu      sync.RWMutex
	entries map[filter.Signature]*record
	counter uint64
	now     func() time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[filter.Signature]*record),
		now:     time.Now,
	}
}

func (c *Cache) next() uint64 {
	c.counter++
	return c.counter
}

// Get returns a copy of the entry for sig. Entries that never received a
// page are reported as absent. Get has no side effects; a stale entry is
// returned with Stale set and is refreshed by the fetcher.
func (c *Cache) Get(sig filter.Signature) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot(sig)
}

func (c *Cache) snapshot(sig filter.Signature) (Entry, bool) {
	rec, ok := c.entries[sig]
	if !ok || !rec.loaded {
		return Entry{Signature: sig}, false
	}
	entry := Entry{
		Signature:  sig,
		Pages:      make([]Page, len(rec.pages)),
		Stale:      rec.stale,
		Generation: rec.generation,
		UpdatedAt:  rec.updatedAt,
	}
	for i, p := range rec.pages {
		entry.Pages[i] = p.clone()
	}
	return entry, true
}

// Signatures returns the signatures of all loaded entries, sorted.
func (c *Cache) Signatures() []filter.Signature {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]filter.Signature, 0, len(c.entries))
	for sig, rec := range c.entries {
		if rec.loaded {
			out = append(out, sig)
		}
	}
	slices.Sort(out)
	return out
}

// begin registers intent to fetch cursor for sig. It reports skip when the
// cache already holds or expects nothing new for that cursor. A stale entry
// always yields a replace request for the first page.
func (c *Cache) begin(sig filter.Signature, cursor string) (req request, skip bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries[sig]
	if !ok {
		rec = &record{generation: c.next()}
		rec.reset()
		c.entries[sig] = rec
	}
	if rec.stale {
		return request{sig: sig, generation: rec.generation, replace: true}, false
	}
	if _, held := rec.held[cursor]; held {
		return request{}, true
	}
	if rec.loaded && rec.consumed(cursor) {
		return request{}, true
	}
	if rec.loaded {
		if _, more := rec.expected(); !more {
			return request{}, true
		}
	}
	return request{sig: sig, cursor: cursor, generation: rec.generation}, false
}

// apply stores a fetched page according to the ordering rules: pages are
// appended strictly in cursor order, early pages are held until their
// predecessor lands, and pages from an outdated generation or for a cursor
// already consumed are discarded.
func (c *Cache) apply(req request, page Page) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries[req.sig]
	if !ok || rec.generation != req.generation {
		return OutcomeDiscarded
	}
	page.Cursor = req.cursor

	if req.replace {
		rec.reset()
		rec.appendPage(page)
		rec.stale = false
		rec.generation = c.next()
		rec.epoch++
		rec.updatedAt = c.now()
		return OutcomeApplied
	}

	if rec.loaded && rec.consumed(req.cursor) {
		return OutcomeDiscarded
	}
	want, more := rec.expected()
	if !more {
		return OutcomeDiscarded
	}
	if req.cursor != want {
		rec.held[req.cursor] = page
		return OutcomeHeld
	}

	rec.appendPage(page)
	for {
		want, more = rec.expected()
		if !more {
			break
		}
		held, ok := rec.held[want]
		if !ok {
			break
		}
		delete(rec.held, want)
		rec.appendPage(held)
	}
	rec.updatedAt = c.now()
	return OutcomeApplied
}

// MarkStale flags every loaded entry whose family is listed. In-flight
// fetches for those entries are ignored on arrival. It returns the number of
// entries that became stale.
func (c *Cache) MarkStale(families ...filter.Family) int {
	if len(families) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	marked := 0
	for sig, rec := range c.entries {
		if !rec.loaded || !slices.Contains(families, sig.Family()) {
			continue
		}
		if !rec.stale {
			marked++
		}
		rec.stale = true
		rec.generation = c.next()
		clear(rec.held)
	}
	return marked
}

// Lookup returns the like state of the first cached copy of id, scanning
// signatures in sorted order.
func (c *Cache) Lookup(id int64) (LikeState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(id)
}

func (c *Cache) lookup(id int64) (LikeState, bool) {
	for _, sig := range slices.Sorted(maps.Keys(c.entries)) {
		for _, p := range c.entries[sig].pages {
			for _, it := range p.Items {
				if it.ID == id {
					return it.LikeState(), true
				}
			}
		}
	}
	return LikeState{}, false
}

// FlipLike resolves the current like flag of id (the first cached copy, or
// assumed when no copy exists) and sets every copy to the opposite flag,
// moving each count by one in the same direction. Copies already holding the
// new flag are left alone. It returns the resolved flag and one Touch per
// changed copy.
func (c *Cache) FlipLike(id int64, assumed bool) (bool, []Touch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := assumed
	if state, ok := c.lookup(id); ok {
		prev = state.Liked
	}
	target := !prev

	var touches []Touch
	for sig, rec := range c.entries {
		for pi := range rec.pages {
			items := rec.pages[pi].Items
			for ii := range items {
				it := &items[ii]
				if it.ID != id || it.Liked == target {
					continue
				}
				before := it.LikeState()
				it.Liked = target
				if target {
					it.LikeCount++
				} else if it.LikeCount > 0 {
					it.LikeCount--
				}
				touches = append(touches, Touch{
					Signature: sig,
					Epoch:     rec.epoch,
					Page:      pi,
					Index:     ii,
					ID:        id,
					Before:    before,
					After:     it.LikeState(),
				})
			}
		}
	}
	return prev, touches
}

// Revert restores each touched copy that still holds the value FlipLike
// wrote. Copies changed since, or replaced by a refetch, are left alone. It
// returns the number of copies restored.
func (c *Cache) Revert(touches []Touch) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	restored := 0
	for _, t := range touches {
		rec, ok := c.entries[t.Signature]
		if !ok || rec.epoch != t.Epoch || t.Page >= len(rec.pages) {
			continue
		}
		items := rec.pages[t.Page].Items
		if t.Index >= len(items) {
			continue
		}
		it := &items[t.Index]
		if it.ID != t.ID || it.LikeState() != t.After {
			continue
		}
		it.Liked = t.Before.Liked
		it.LikeCount = t.Before.Count
		restored++
	}
	return restored
}
