package listing

import (
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

// Kind tags the Item union.
type Kind string

const (
	KindFunding Kind = "FUNDING"
	KindVote    Kind = "VOTE"
)

// FundingDetail carries the display fields of a funded screening.
type FundingDetail struct {
	CinemaName      string
	ScreeningDate   time.Time
	Price           int
	FundingRate     float64
	Participants    int
	MaxParticipants int
	EndsAt          time.Time
}

// VoteDetail carries the display fields of a screening vote.
type VoteDetail struct {
	SupportCount int
	EndsAt       time.Time
}

// Item is one funding or vote as listed by the API. Exactly one of Funding
// or Vote is set, matching Kind.
type Item struct {
	Kind      Kind
	ID        int64
	Title     string
	Liked     bool
	LikeCount int
	Funding   *FundingDetail
	Vote      *VoteDetail
}

// LikeState is the mutable part of an Item.
type LikeState struct {
	Liked bool
	Count int
}

// LikeState returns the like flag and count of the item.
func (it Item) LikeState() LikeState {
	return LikeState{Liked: it.Liked, Count: it.LikeCount}
}

func (it Item) clone() Item {
	out := it
	if it.Funding != nil {
		f := *it.Funding
		out.Funding = &f
	}
	if it.Vote != nil {
		v := *it.Vote
		out.Vote = &v
	}
	return out
}

// Page is one cursor step of a listing. Cursor is the cursor the page was
// requested with; the first page has an empty cursor.
type Page struct {
	Cursor     string
	Items      []Item
	NextCursor string
	HasNext    bool
}

func (p Page) clone() Page {
	out := p
	out.Items = make([]Item, len(p.Items))
	for i, it := range p.Items {
		out.Items[i] = it.clone()
	}
	return out
}

// Entry is a snapshot of everything cached for one signature.
type Entry struct {
	Signature  filter.Signature
	Pages      []Page
	Stale      bool
	Generation uint64
	UpdatedAt  time.Time
}

// Items flattens the pages in order.
func (e Entry) Items() []Item {
	out := make([]Item, 0, e.Len())
	for _, p := range e.Pages {
		out = append(out, p.Items...)
	}
	return out
}

// Len returns the number of cached items.
func (e Entry) Len() int {
	n := 0
	for _, p := range e.Pages {
		n += len(p.Items)
	}
	return n
}

// HasNext reports whether another page may exist. An entry without pages
// has not been asked yet, so the answer is true.
func (e Entry) HasNext() bool {
	if len(e.Pages) == 0 {
		return true
	}
	return e.Pages[len(e.Pages)-1].HasNext
}

// NextCursor returns the cursor for the page after the last cached one.
func (e Entry) NextCursor() string {
	if len(e.Pages) == 0 {
		return ""
	}
	return e.Pages[len(e.Pages)-1].NextCursor
}

// Find returns the first cached copy of the item with the given id.
func (e Entry) Find(id int64) (Item, bool) {
	for _, p := range e.Pages {
		for _, it := range p.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return Item{}, false
}
