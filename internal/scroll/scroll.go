// Package scroll drives infinite scrolling for one bound listing.
package scroll

import (
	"context"
	"errors"
	"sync"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

// ErrDetached is returned by Fetch for a ticket issued before the controller
// was bound to another signature. The fetched page is still cached.
var ErrDetached = errors.New("scroll: ticket detached by rebind")

// State of the controller.
type State int

const (
	StateIdle State = iota
	StateFetchPending
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateFetchPending:
		return "fetch-pending"
	case StateExhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

// Loader is the part of listing.Fetcher the controller needs.
type Loader interface {
	Get(sig filter.Signature) (listing.Entry, bool)
	EnsurePage(ctx context.Context, sig filter.Signature, cursor string) (listing.Entry, error)
}

var _ Loader = (*listing.Fetcher)(nil)

// Viewport describes the visible window over the rendered rows.
type Viewport struct {
	Offset  int
	Height  int
	Content int
}

// Remaining returns the number of rows below the visible window.
func (v Viewport) Remaining() int {
	r := v.Content - (v.Offset + v.Height)
	if r < 0 {
		return 0
	}
	return r
}

// Ticket authorizes exactly one fetch.
type Ticket struct {
	Signature filter.Signature
	Cursor    string
	epoch     uint64
}

// Controller is the Idle/FetchPending/Exhausted state machine. Scroll and
// manual triggers share one guard, so at most one fetch is pending per bound
// signature.
type Controller struct {
	mu        sync.Mutex
	loader    Loader
	threshold int

	sig   filter.Signature
	bound bool
	state State
	epoch uint64
	err   error
}

// NewController returns an unbound controller. threshold is the number of
// rows below the viewport at which the next page is requested.
func NewController(loader Loader, threshold int) *Controller {
	if threshold < 0 {
		threshold = 0
	}
	return &Controller{loader: loader, threshold: threshold}
}

// Bind attaches the controller to sig. Tickets issued for the previous
// binding are detached; their fetches still complete but no longer change
// the controller.
func (c *Controller) Bind(sig filter.Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sig = sig
	c.bound = true
	c.epoch++
	c.err = nil
	c.state = StateIdle
	if c.complete() {
		c.state = StateExhausted
	}
}

// complete reports whether the bound entry is fresh and has no next page.
func (c *Controller) complete() bool {
	entry, ok := c.loader.Get(c.sig)
	return ok && !entry.Stale && !entry.HasNext()
}

// OnScroll issues a ticket when the viewport is within the threshold of the
// content bottom and the guard allows a fetch.
func (c *Controller) OnScroll(v Viewport) (Ticket, bool) {
	if v.Remaining() > c.threshold {
		return Ticket{}, false
	}
	return c.trigger()
}

// LoadMore is the manual trigger.
func (c *Controller) LoadMore() (Ticket, bool) {
	return c.trigger()
}

func (c *Controller) trigger() (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound {
		return Ticket{}, false
	}
	if c.state == StateExhausted {
		if c.complete() {
			return Ticket{}, false
		}
		c.state = StateIdle
	}
	if c.state != StateIdle {
		return Ticket{}, false
	}
	if c.complete() {
		c.state = StateExhausted
		return Ticket{}, false
	}

	entry, _ := c.loader.Get(c.sig)
	c.state = StateFetchPending
	return Ticket{Signature: c.sig, Cursor: entry.NextCursor(), epoch: c.epoch}, true
}

// Fetch runs the fetch authorized by t and settles the state machine.
func (c *Controller) Fetch(ctx context.Context, t Ticket) (listing.Entry, error) {
	entry, err := c.loader.EnsurePage(ctx, t.Signature, t.Cursor)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.epoch != c.epoch {
		return entry, ErrDetached
	}
	if err != nil {
		c.state = StateIdle
		c.err = err
		return entry, err
	}
	c.err = nil
	if !entry.Stale && !entry.HasNext() {
		c.state = StateExhausted
	} else {
		c.state = StateIdle
	}
	return entry, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last settled fetch, if it failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Signature returns the bound signature.
func (c *Controller) Signature() filter.Signature {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sig
}
