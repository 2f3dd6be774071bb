package like

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/listing"
	"github.com/daeyeon-lee/cinemoa/internal/metrics"
)

// Mutator performs the like mutation against the API.
type Mutator interface {
	AddLike(ctx context.Context, itemID, viewerID int64) error
	RemoveLike(ctx context.Context, itemID, viewerID int64) error
}

// StatusChecker is implemented by mutators that can report the
// authoritative like flag of an item that is not cached locally.
type StatusChecker interface {
	LikeStatus(ctx context.Context, itemID, viewerID int64) (bool, error)
}

// Store is the part of listing.Cache the coordinator patches.
type Store interface {
	Lookup(id int64) (listing.LikeState, bool)
	FlipLike(id int64, assumed bool) (bool, []listing.Touch)
	Revert(touches []listing.Touch) int
}

var _ Store = (*listing.Cache)(nil)

// Result describes a committed toggle.
type Result struct {
	ItemID int64
	Liked  bool
	Copies int
}

// MutationError reports a failed like mutation after the optimistic change
// was rolled back.
type MutationError struct {
	ItemID   int64
	Liked    bool
	Reverted int
	Err      error
}

func (e *MutationError) Error() string {
	verb := "unlike"
	if e.Liked {
		verb = "like"
	}
	return fmt.Sprintf("%s item %d: %v", verb, e.ItemID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Coordinator toggles likes optimistically across every cached copy of an
// item and rolls back on failure.
type Coordinator struct {
	store   Store
	mutator Mutator
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewCoordinator wires a coordinator. m may be nil.
func NewCoordinator(store Store, mutator Mutator, log zerolog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		store:   store,
		mutator: mutator,
		log:     log.With().Str("component", "like").Logger(),
		metrics: m,
	}
}

// Toggle flips the like flag of itemID for viewerID. Every cached copy
// changes together before the API call; on failure every copy still holding
// the optimistic value is restored and a *MutationError is returned.
//
// Callers should not toggle the same item again while a call is in flight.
// If they do, the counts stay consistent: the later flip wins.
func (c *Coordinator) Toggle(ctx context.Context, itemID, viewerID int64) (Result, error) {
	log := c.log.With().
		Str("op", uuid.NewString()).
		Int64("item", itemID).
		Int64("viewer", viewerID).
		Logger()

	assumed := c.resolveUncached(ctx, log, itemID, viewerID)
	prev, touches := c.store.FlipLike(itemID, assumed)
	liked := !prev
	log.Debug().Bool("liked", liked).Int("copies", len(touches)).Msg("optimistic like applied")

	var err error
	if liked {
		err = c.mutator.AddLike(ctx, itemID, viewerID)
	} else {
		err = c.mutator.RemoveLike(ctx, itemID, viewerID)
	}
	if err != nil {
		reverted := c.store.Revert(touches)
		c.metrics.ObserveToggle(metrics.ToggleRolledBack)
		log.Warn().Err(err).Bool("liked", liked).Int("reverted", reverted).Msg("like mutation failed")
		return Result{}, &MutationError{ItemID: itemID, Liked: liked, Reverted: reverted, Err: err}
	}

	c.metrics.ObserveToggle(metrics.ToggleCommitted)
	log.Info().Bool("liked", liked).Int("copies", len(touches)).Msg("like committed")
	return Result{ItemID: itemID, Liked: liked, Copies: len(touches)}, nil
}

// resolveUncached returns the flag to assume when no copy is cached. It asks
// the API when the mutator can answer and falls back to not liked.
func (c *Coordinator) resolveUncached(ctx context.Context, log zerolog.Logger, itemID, viewerID int64) bool {
	if _, ok := c.store.Lookup(itemID); ok {
		return false
	}
	checker, ok := c.mutator.(StatusChecker)
	if !ok {
		return false
	}
	liked, err := checker.LikeStatus(ctx, itemID, viewerID)
	if err != nil {
		log.Warn().Err(err).Msg("like status lookup failed; assuming not liked")
		return false
	}
	return liked
}
