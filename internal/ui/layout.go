package ui

import "time"

// LayoutCompactWidth is the default width below which filters are edited in
// a sheet backed by a draft.
const LayoutCompactWidth = 100

// Vertical chrome around the list: header, command bar, filter bar and
// status line.
const chromeLines = 4

// HistoryLimit caps the back stack.
const HistoryLimit = 32

// RedrawDelay is how long after a like starts the optimistic state is drawn.
const RedrawDelay = 30 * time.Millisecond

// Records shown by the log overlay.
const logTailLines = 200
