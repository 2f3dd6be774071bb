package filter

import (
	"errors"
	"slices"
)

// ErrAxisNotOpen is returned when a draft edit targets an axis that was not
// opened for the current session.
var ErrAxisNotOpen = errors.New("filter axis not open for editing")

// Axis is one independently editable dimension of a FilterSet.
type Axis int

const (
	AxisQuery Axis = iota
	AxisSort
	AxisCategory
	AxisRegion
	AxisVenueType
	AxisClosed
)

// Axes returns every editable axis in display order.
func Axes() []Axis {
	return []Axis{AxisQuery, AxisSort, AxisCategory, AxisRegion, AxisVenueType, AxisClosed}
}

func (a Axis) String() string {
	switch a {
	case AxisQuery:
		return "query"
	case AxisSort:
		return "sort"
	case AxisCategory:
		return "category"
	case AxisRegion:
		return "region"
	case AxisVenueType:
		return "venue"
	case AxisClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Layout is the editor presentation implied by the viewport width.
type Layout int

const (
	// LayoutCompact edits filters in a sheet backed by a draft.
	LayoutCompact Layout = iota
	// LayoutWide edits filters inline and commits each change directly.
	LayoutWide
)

// Staging separates draft filter edits from the committed filters that drive
// fetching. Committed state only changes through Apply or Commit, and always
// as a whole.
//
// Staging is not safe for concurrent use; it belongs to the UI event loop.
type Staging struct {
	committed  FilterSet
	draft      FilterSet
	open       map[Axis]struct{}
	breakpoint int
	layout     Layout
}

// NewStaging returns a staging area around committed. Widths below
// breakpoint use the compact layout.
func NewStaging(committed FilterSet, breakpoint int) *Staging {
	return &Staging{
		committed:  committed.Normalize(),
		breakpoint: breakpoint,
		layout:     LayoutCompact,
	}
}

// Committed returns the filters currently driving fetches.
func (s *Staging) Committed() FilterSet {
	return s.committed
}

// Draft returns the draft and whether an edit session is open.
func (s *Staging) Draft() (FilterSet, bool) {
	if s.open == nil {
		return FilterSet{}, false
	}
	return s.draft, true
}

// Editing reports whether an edit session is open.
func (s *Staging) Editing() bool {
	return s.open != nil
}

// IsOpen reports whether axis belongs to the current session.
func (s *Staging) IsOpen(axis Axis) bool {
	_, ok := s.open[axis]
	return ok
}

// Layout returns the layout derived from the last observed width.
func (s *Staging) Layout() Layout {
	return s.layout
}

// Open starts or extends an edit session, snapshotting the committed value of
// each axis into the draft. Axes already open keep their draft edits.
func (s *Staging) Open(axes ...Axis) {
	if s.open == nil {
		s.open = make(map[Axis]struct{}, len(axes))
		s.draft = s.committed
	}
	for _, axis := range axes {
		if _, ok := s.open[axis]; ok {
			continue
		}
		copyAxis(&s.draft, s.committed, axis)
		s.open[axis] = struct{}{}
	}
}

// SetQuery edits the draft query.
func (s *Staging) SetQuery(q string) error {
	return s.edit(AxisQuery, func(d *FilterSet) { d.Query = q })
}

// SetSort edits the draft sort.
func (s *Staging) SetSort(sort Sort) error {
	return s.edit(AxisSort, func(d *FilterSet) { d.Sort = sort })
}

// SetCategory edits the draft category selection.
func (s *Staging) SetCategory(c Category) error {
	return s.edit(AxisCategory, func(d *FilterSet) {
		d.Category = Category{TopLevel: c.TopLevel, Leaves: slices.Clone(c.Leaves)}
	})
}

// SetRegions replaces the draft region set.
func (s *Staging) SetRegions(regions ...string) error {
	return s.edit(AxisRegion, func(d *FilterSet) { d.Regions = slices.Clone(regions) })
}

// ToggleRegion adds or removes a region from the draft.
func (s *Staging) ToggleRegion(region string) error {
	return s.edit(AxisRegion, func(d *FilterSet) { d.Regions = toggle(d.Regions, region) })
}

// SetVenueTypes replaces the draft venue-type set.
func (s *Staging) SetVenueTypes(types ...string) error {
	return s.edit(AxisVenueType, func(d *FilterSet) { d.VenueTypes = slices.Clone(types) })
}

// ToggleVenueType adds or removes a venue type from the draft.
func (s *Staging) ToggleVenueType(venue string) error {
	return s.edit(AxisVenueType, func(d *FilterSet) { d.VenueTypes = toggle(d.VenueTypes, venue) })
}

// SetIncludeClosed edits the draft closed flag.
func (s *Staging) SetIncludeClosed(include bool) error {
	return s.edit(AxisClosed, func(d *FilterSet) { d.IncludeClosed = include })
}

// Reset sets a draft axis back to its default value.
func (s *Staging) Reset(axis Axis) error {
	return s.edit(axis, func(d *FilterSet) { copyAxis(d, Default(), axis) })
}

// Apply copies every opened axis of the draft into committed state, closes
// the session and returns the new committed filters. changed reports whether
// the signature differs from before.
func (s *Staging) Apply() (committed FilterSet, changed bool) {
	if s.open == nil {
		return s.committed, false
	}
	next := s.committed
	for axis := range s.open {
		copyAxis(&next, s.draft, axis)
	}
	next = next.Normalize()
	changed = next.Signature() != s.committed.Signature()
	s.committed = next
	s.end()
	return s.committed, changed
}

// Discard drops the draft without touching committed state.
func (s *Staging) Discard() {
	s.end()
}

// Commit applies edit directly to committed state. Any open draft is
// discarded first so a later Apply cannot overwrite the change.
func (s *Staging) Commit(edit func(*FilterSet)) (committed FilterSet, changed bool) {
	s.end()
	next := s.committed
	next.Regions = slices.Clone(next.Regions)
	next.VenueTypes = slices.Clone(next.VenueTypes)
	next.Category.Leaves = slices.Clone(next.Category.Leaves)
	edit(&next)
	next = next.Normalize()
	changed = next.Signature() != s.committed.Signature()
	s.committed = next
	return s.committed, changed
}

// Replace swaps the committed filters wholesale, e.g. when navigating to a
// different view. Any open draft is discarded.
func (s *Staging) Replace(f FilterSet) {
	s.end()
	s.committed = f.Normalize()
}

// Resize records the viewport width. Leaving the compact layout while a
// draft is open discards the draft and returns true.
func (s *Staging) Resize(width int) (discarded bool) {
	next := LayoutCompact
	if width >= s.breakpoint {
		next = LayoutWide
	}
	prev := s.layout
	s.layout = next
	if prev == LayoutCompact && next == LayoutWide && s.open != nil {
		s.end()
		return true
	}
	return false
}

func (s *Staging) edit(axis Axis, fn func(*FilterSet)) error {
	if _, ok := s.open[axis]; !ok {
		return ErrAxisNotOpen
	}
	fn(&s.draft)
	return nil
}

func (s *Staging) end() {
	s.open = nil
	s.draft = FilterSet{}
}

func copyAxis(dst *FilterSet, src FilterSet, axis Axis) {
	switch axis {
	case AxisQuery:
		dst.Query = src.Query
	case AxisSort:
		dst.Sort = src.Sort
	case AxisCategory:
		dst.Category = Category{TopLevel: src.Category.TopLevel, Leaves: slices.Clone(src.Category.Leaves)}
	case AxisRegion:
		dst.Regions = slices.Clone(src.Regions)
	case AxisVenueType:
		dst.VenueTypes = slices.Clone(src.VenueTypes)
	case AxisClosed:
		dst.IncludeClosed = src.IncludeClosed
	}
}

func toggle(values []string, v string) []string {
	v = normalizeText(v)
	if v == "" {
		return values
	}
	out := make([]string, 0, len(values)+1)
	found := false
	for _, existing := range values {
		if normalizeText(existing) == v {
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, v)
	}
	return out
}
