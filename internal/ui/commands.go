package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/like"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
	"github.com/daeyeon-lee/cinemoa/internal/scroll"
)

// Messages

// entryMsg reports a first-page load (or stale refresh) for sig.
type entryMsg struct {
	sig   filter.Signature
	entry listing.Entry
	err   error
}

// pageMsg reports an infinite-scroll fetch.
type pageMsg struct {
	sig   filter.Signature
	entry listing.Entry
	err   error
}

type likeMsg struct {
	itemID int64
	result like.Result
	err    error
}

// redrawMsg forces a render so optimistic cache changes show before the
// like mutation returns.
type redrawMsg struct{}

// Commands

func loadCmd(ctx context.Context, fetcher *listing.Fetcher, sig filter.Signature) tea.Cmd {
	return func() tea.Msg {
		entry, err := fetcher.Load(ctx, sig)
		return entryMsg{sig: sig, entry: entry, err: err}
	}
}

func fetchPageCmd(ctx context.Context, ctrl *scroll.Controller, t scroll.Ticket) tea.Cmd {
	return func() tea.Msg {
		entry, err := ctrl.Fetch(ctx, t)
		return pageMsg{sig: t.Signature, entry: entry, err: err}
	}
}

func likeCmd(ctx context.Context, likes *like.Coordinator, itemID, viewerID int64) tea.Cmd {
	return func() tea.Msg {
		res, err := likes.Toggle(ctx, itemID, viewerID)
		return likeMsg{itemID: itemID, result: res, err: err}
	}
}

func redrawCmd() tea.Cmd {
	return tea.Tick(RedrawDelay, func(time.Time) tea.Msg {
		return redrawMsg{}
	})
}
