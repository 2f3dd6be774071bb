// Package ui implements the cinemoa terminal interface with Bubble Tea.
//
// # Screens
//
//   - Home: every configured home section stacked, first page each
//   - Section: one home section as a full listing
//   - Search: free-text query plus the filter axes
//   - Categories: category browse plus the filter axes
//   - Profile: the viewer's liked, funded and created lists
//
// Every screen except Home is bound to the scroll.Controller, which pages
// in more results as the selection nears the bottom. Screens form a history
// stack; going back fires the history-restore lifecycle signal, and
// regaining terminal focus fires the foreground signal.
//
// # Filters
//
// Filter edits go through filter.Staging. Narrow terminals edit a draft in
// a sheet and apply it as a whole; wide terminals commit each change
// inline. Growing the terminal past the compact width discards an open
// draft.
//
// # Data
//
// The model never holds listing data. Rows are read from the shared
// listing.Cache on every render, so a like toggled on one screen is already
// visible on every other screen showing the same item.
//
// The log overlay (l) reads the tail of the client log file through
// logging.Tail each time it opens.
package ui
