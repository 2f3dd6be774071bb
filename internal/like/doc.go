// Package like keeps every cached copy of an item consistent when the viewer
// likes or unlikes it.
//
// The same funding may be listed by a home section, a search and a profile
// list at once. Coordinator.Toggle changes all of those copies in one cache
// step, calls the API, and restores exactly the previous values when the
// call fails.
package like
