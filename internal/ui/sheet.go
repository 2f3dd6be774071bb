package ui

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

// sheetRow indexes the editable rows of the filter sheet.
type sheetRow int

const (
	sheetRowSort sheetRow = iota
	sheetRowCategory
	sheetRowRegion
	sheetRowVenue
	sheetRowClosed
	sheetRowCount
)

var sheetAxes = [sheetRowCount]filter.Axis{
	sheetRowSort:     filter.AxisSort,
	sheetRowCategory: filter.AxisCategory,
	sheetRowRegion:   filter.AxisRegion,
	sheetRowVenue:    filter.AxisVenueType,
	sheetRowClosed:   filter.AxisClosed,
}

type categoryOption struct {
	label    string
	category filter.Category
}

var categoryOptions = []categoryOption{
	{"All", filter.AllCategories()},
	{"Movies", filter.TopCategory(1)},
	{"Concerts", filter.TopCategory(2)},
	{"Classics", filter.LeafCategories(11)},
	{"Animation", filter.LeafCategories(12, 13)},
}

var (
	regionOptions = []string{"서울", "경기", "부산", "대전"}
	venueOptions  = []string{"IMAX", "4DX", "SCREENX", "DOLBY"}
)

// sheetState is the filter editor. In the compact layout it edits a draft
// that only reaches the listing on Apply; in the wide layout every change
// is committed as it is made.
type sheetState struct {
	open   bool
	row    sheetRow
	option int
}

func (m Model) sheetDraft() bool {
	return m.staging.Layout() == filter.LayoutCompact
}

// sheetValue is the filter set the sheet currently displays.
func (m Model) sheetValue() filter.FilterSet {
	if draft, ok := m.staging.Draft(); ok {
		return draft
	}
	return m.staging.Committed()
}

func (m *Model) openSheet(row sheetRow) {
	m.sheet = sheetState{open: true, row: row}
	if m.sheetDraft() {
		m.staging.Open(sheetAxes[:]...)
	}
}

// quickEdit is the single-key shortcut for sort and closed. Wide layouts
// commit inline; compact layouts open the sheet on that row.
func (m *Model) quickEdit(row sheetRow) tea.Cmd {
	if m.sheetDraft() {
		m.openSheet(row)
		return nil
	}
	m.sheet.row = row
	return m.changeRow()
}

func (m Model) handleSheetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.staging.Discard()
		m.sheet.open = false
		return m, nil

	case key.Matches(msg, m.keys.Apply), key.Matches(msg, m.keys.Confirm):
		m.sheet.open = false
		if !m.sheetDraft() {
			return m, nil
		}
		set, changed := m.staging.Apply()
		return m, m.rebind(set, changed)

	case key.Matches(msg, m.keys.Down):
		m.sheet.row = (m.sheet.row + 1) % sheetRowCount
		m.sheet.option = 0
	case key.Matches(msg, m.keys.Up):
		m.sheet.row = (m.sheet.row + sheetRowCount - 1) % sheetRowCount
		m.sheet.option = 0
	case key.Matches(msg, m.keys.Right):
		if n := m.optionCount(); n > 0 {
			m.sheet.option = (m.sheet.option + 1) % n
		}
	case key.Matches(msg, m.keys.Left):
		if n := m.optionCount(); n > 0 {
			m.sheet.option = (m.sheet.option + n - 1) % n
		}
	case key.Matches(msg, m.keys.Select):
		return m, m.changeRow()
	case key.Matches(msg, m.keys.Reset):
		return m, m.resetRow()
	}
	return m, nil
}

func (m Model) optionCount() int {
	switch m.sheet.row {
	case sheetRowCategory:
		return len(categoryOptions)
	case sheetRowRegion:
		return len(regionOptions)
	case sheetRowVenue:
		return len(venueOptions)
	default:
		return 0
	}
}

// changeRow applies the highlighted option of the current row.
func (m *Model) changeRow() tea.Cmd {
	current := m.sheetValue()
	opt := m.sheet.option

	var draft func(*filter.Staging) error
	var edit func(*filter.FilterSet)
	switch m.sheet.row {
	case sheetRowSort:
		next := current.Sort.Next()
		draft = func(s *filter.Staging) error { return s.SetSort(next) }
		edit = func(f *filter.FilterSet) { f.Sort = next }
	case sheetRowCategory:
		c := categoryOptions[opt].category
		draft = func(s *filter.Staging) error { return s.SetCategory(c) }
		edit = func(f *filter.FilterSet) { f.Category = c }
	case sheetRowRegion:
		r := regionOptions[opt]
		draft = func(s *filter.Staging) error { return s.ToggleRegion(r) }
		edit = func(f *filter.FilterSet) { f.Regions = toggleValue(f.Regions, r) }
	case sheetRowVenue:
		v := venueOptions[opt]
		draft = func(s *filter.Staging) error { return s.ToggleVenueType(v) }
		edit = func(f *filter.FilterSet) { f.VenueTypes = toggleValue(f.VenueTypes, v) }
	case sheetRowClosed:
		include := !current.IncludeClosed
		draft = func(s *filter.Staging) error { return s.SetIncludeClosed(include) }
		edit = func(f *filter.FilterSet) { f.IncludeClosed = include }
	default:
		return nil
	}
	return m.sheetChange(draft, edit)
}

// resetRow clears the current row back to its default.
func (m *Model) resetRow() tea.Cmd {
	axis := sheetAxes[m.sheet.row]
	def := filter.Default()
	return m.sheetChange(
		func(s *filter.Staging) error { return s.Reset(axis) },
		func(f *filter.FilterSet) {
			switch axis {
			case filter.AxisSort:
				f.Sort = def.Sort
			case filter.AxisCategory:
				f.Category = def.Category
			case filter.AxisRegion:
				f.Regions = nil
			case filter.AxisVenueType:
				f.VenueTypes = nil
			case filter.AxisClosed:
				f.IncludeClosed = def.IncludeClosed
			}
		},
	)
}

func (m *Model) sheetChange(draft func(*filter.Staging) error, edit func(*filter.FilterSet)) tea.Cmd {
	if m.sheetDraft() {
		if err := draft(m.staging); err != nil {
			m.setNotice(err.Error(), true)
		}
		return nil
	}
	return m.commit(edit)
}

func toggleValue(values []string, v string) []string {
	if i := slices.Index(values, v); i >= 0 {
		return slices.Delete(slices.Clone(values), i, i+1)
	}
	return append(slices.Clone(values), v)
}
