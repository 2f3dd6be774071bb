// Package filter models the listing filter axes and their canonical cache key.
//
// # Overview
//
// A FilterSet describes one listing: its family (search, category browse,
// home section or profile list), free-text query, sort mode, category
// selection, region and venue-type sets, the closed-items flag and the
// viewer. Two filter sets select the same listing exactly when their
// Signature values are equal.
//
// # Signatures
//
// Signature encodes only non-default fields, so "no explicit choice" and
// "explicit default choice" share a key:
//
//	filter.Default().Signature()                       // "search"
//	filter.FilterSet{Sort: filter.SortLatest}.Signature() // "search"
//	filter.Home("popular", 7).Signature()              // "home:popular?viewer=7"
//
// Set-valued fields are normalized (NFC, trimmed, deduplicated, sorted)
// before encoding, so ordering never changes the key. ParseSignature turns a
// key back into the normalized FilterSet it came from.
//
// # Staging
//
// Staging holds the draft of a filter sheet separately from the committed
// filters:
//
//	s := filter.NewStaging(current, ui.LayoutCompactWidth)
//	s.Open(filter.AxisSort, filter.AxisRegion)
//	_ = s.SetSort(filter.SortPopular)
//	_ = s.ToggleRegion("서울")
//	next, changed := s.Apply() // or s.Discard()
//
// Committed state changes all at once or not at all. Growing the terminal
// past the compact breakpoint while a draft is open discards the draft.
package filter
