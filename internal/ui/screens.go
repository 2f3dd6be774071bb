package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
	"github.com/daeyeon-lee/cinemoa/internal/scroll"
)

type screenKind int

const (
	screenHome screenKind = iota
	screenSection
	screenSearch
	screenCategory
	screenProfile
)

func (k screenKind) String() string {
	switch k {
	case screenSection:
		return "Section"
	case screenSearch:
		return "Search"
	case screenCategory:
		return "Categories"
	case screenProfile:
		return "Profile"
	default:
		return "Home"
	}
}

// screen is one entry of the navigation history. Home stacks every home
// section; the other kinds show a single listing with infinite scroll.
type screen struct {
	kind     screenKind
	set      filter.FilterSet
	selected int
	offset   int
}

func (s screen) scrollable() bool {
	return s.kind != screenHome
}

// filterable reports whether the listing axes can be edited.
func (s screen) filterable() bool {
	return s.kind == screenSearch || s.kind == screenCategory
}

// row is one rendered line: a section header or an item.
type row struct {
	sig    filter.Signature
	header string
	item   listing.Item
}

func (r row) isHeader() bool {
	return r.header != ""
}

// signatures returns the listings the current screen shows.
func (m Model) signatures() []filter.Signature {
	if m.current.kind != screenHome {
		return []filter.Signature{m.current.set.Signature()}
	}
	sigs := make([]filter.Signature, 0, len(m.homeSections))
	for _, section := range m.homeSections {
		sigs = append(sigs, filter.Home(section, m.viewerID).Signature())
	}
	return sigs
}

func (m Model) visible(sig filter.Signature) bool {
	for _, s := range m.signatures() {
		if s == sig {
			return true
		}
	}
	return false
}

// rows reads the cache. Rendering never goes through the Fetcher so it does
// not count as a lookup.
func (m Model) rows() []row {
	cache := m.fetcher.Cache()
	var out []row
	for i, sig := range m.signatures() {
		entry, _ := cache.Get(sig)
		if m.current.kind == screenHome {
			out = append(out, row{sig: sig, header: sectionTitle(m.homeSections[i])})
		}
		for _, it := range entry.Items() {
			out = append(out, row{sig: sig, item: it})
		}
	}
	return out
}

func (m Model) selectedItem() (listing.Item, bool) {
	rows := m.rows()
	i := m.current.selected
	if i < 0 || i >= len(rows) || rows[i].isHeader() {
		return listing.Item{}, false
	}
	return rows[i].item, true
}

// nextItemRow moves from index by delta rows, skipping headers, and stays
// within the item rows.
func nextItemRow(rows []row, from, delta int) int {
	if len(rows) == 0 {
		return 0
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	target := min(max(from+delta, 0), len(rows)-1)
	for i := target; i >= 0 && i < len(rows); i += step {
		if !rows[i].isHeader() {
			return i
		}
	}
	for i := target; i >= 0 && i < len(rows); i -= step {
		if !rows[i].isHeader() {
			return i
		}
	}
	return min(max(from, 0), len(rows)-1)
}

func (m *Model) clampSelection() {
	rows := m.rows()
	if len(rows) == 0 {
		m.current.selected = 0
		return
	}
	if m.current.selected >= len(rows) || rows[m.current.selected].isHeader() {
		m.current.selected = nextItemRow(rows, min(m.current.selected, len(rows)-1), 1)
	}
}

func (m Model) listHeight() int {
	return max(m.height-chromeLines, 1)
}

// ensureVisible scrolls the list so the selection is on screen and reports
// the viewport to the scroll controller.
func (m *Model) ensureVisible() tea.Cmd {
	// Without a window size the list height is unknown.
	if !m.ready {
		return nil
	}
	height := m.listHeight()
	rows := m.rows()
	if m.current.selected < m.current.offset {
		m.current.offset = m.current.selected
	}
	if m.current.selected >= m.current.offset+height {
		m.current.offset = m.current.selected - height + 1
	}
	// Keep the section header above the first item of a section in view.
	if sel := m.current.selected; height > 1 && sel > 0 && sel == m.current.offset &&
		sel < len(rows) && rows[sel-1].isHeader() {
		m.current.offset = sel - 1
	}
	m.current.offset = max(min(m.current.offset, len(rows)-height), 0)

	if !m.current.scrollable() {
		return nil
	}
	if _, ok := m.fetcher.Cache().Get(m.current.set.Signature()); !ok {
		return nil
	}
	t, ok := m.scroll.OnScroll(scroll.Viewport{
		Offset:  m.current.offset,
		Height:  height,
		Content: len(rows),
	})
	if !ok {
		return nil
	}
	return fetchPageCmd(m.ctx, m.scroll, t)
}

// loadVisible reads every shown listing through the fetcher: fresh entries
// come back from the cache, missing and stale ones are fetched.
func (m *Model) loadVisible() tea.Cmd {
	var cmds []tea.Cmd
	for _, sig := range m.signatures() {
		if m.loading[sig] {
			continue
		}
		m.loading[sig] = true
		cmds = append(cmds, loadCmd(m.ctx, m.fetcher, sig))
	}
	return tea.Batch(cmds...)
}

// activate shows s and binds the staging area and scroll controller to it.
func (m *Model) activate(s screen) tea.Cmd {
	m.current = s
	m.stopSearch()
	m.sheet.open = false
	if s.scrollable() {
		m.staging.Replace(s.set)
		m.current.set = m.staging.Committed()
		m.scroll.Bind(m.current.set.Signature())
	}
	return m.loadVisible()
}

// navigate pushes the current screen and shows s.
func (m *Model) navigate(s screen) tea.Cmd {
	m.history = append(m.history, m.current)
	if len(m.history) > HistoryLimit {
		m.history = m.history[len(m.history)-HistoryLimit:]
	}
	return m.activate(s)
}

// back restores the previous screen. Restoring from history counts as a
// lifecycle signal, so listings restored this way refresh when stale.
func (m *Model) back() tea.Cmd {
	if len(m.history) == 0 {
		return nil
	}
	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.invalidator.OnHistoryRestore()
	return m.activate(prev)
}

func (m *Model) openHome() tea.Cmd {
	if m.current.kind == screenHome {
		return nil
	}
	return m.navigate(screen{kind: screenHome})
}

func (m *Model) openSearch() tea.Cmd {
	if m.current.kind == screenSearch {
		return nil
	}
	return m.navigate(screen{kind: screenSearch, set: filter.FilterSet{
		Family:   filter.FamilySearch,
		Sort:     m.prefs.Sort(),
		ViewerID: m.viewerID,
	}})
}

func (m *Model) openCategory() tea.Cmd {
	if m.current.kind == screenCategory {
		return nil
	}
	return m.navigate(screen{kind: screenCategory, set: filter.FilterSet{
		Family:   filter.FamilyCategory,
		Sort:     m.prefs.Sort(),
		Category: categoryOptions[1].category,
		ViewerID: m.viewerID,
	}})
}

func (m *Model) openProfile() tea.Cmd {
	if m.viewerID <= 0 {
		m.setNotice("Set viewer_id in config.toml to see your lists", true)
		return nil
	}
	if m.current.kind == screenProfile {
		return nil
	}
	return m.navigate(screen{kind: screenProfile, set: filter.Profile(m.profileSections[0], m.viewerID)})
}

// openSelectedSection opens the home section of the selected row as a full
// listing.
func (m *Model) openSelectedSection() tea.Cmd {
	if m.current.kind != screenHome {
		return nil
	}
	rows := m.rows()
	if m.current.selected >= len(rows) {
		return nil
	}
	set, err := filter.ParseSignature(rows[m.current.selected].sig)
	if err != nil {
		return nil
	}
	return m.navigate(screen{kind: screenSection, set: set})
}

// nextSection jumps to the next home section, or cycles the profile list.
// Cycling profile lists replaces the screen without touching history.
func (m *Model) nextSection() tea.Cmd {
	switch m.current.kind {
	case screenHome:
		rows := m.rows()
		for i := m.current.selected + 1; i < len(rows); i++ {
			if rows[i].isHeader() {
				m.current.selected = nextItemRow(rows, i, 1)
				return m.ensureVisible()
			}
		}
		m.current.selected = nextItemRow(rows, -1, 1)
		return m.ensureVisible()

	case screenProfile:
		idx := 0
		for i, section := range m.profileSections {
			if section == m.current.set.Section {
				idx = (i + 1) % len(m.profileSections)
			}
		}
		return m.activate(screen{kind: screenProfile, set: filter.Profile(m.profileSections[idx], m.viewerID)})
	}
	return nil
}

// commit applies edit straight to the committed filters. A changed
// signature rebinds the listing and starts from the top.
func (m *Model) commit(edit func(*filter.FilterSet)) tea.Cmd {
	if !m.current.filterable() {
		return nil
	}
	set, changed := m.staging.Commit(edit)
	return m.rebind(set, changed)
}

func (m *Model) rebind(set filter.FilterSet, changed bool) tea.Cmd {
	if !changed {
		return nil
	}
	m.current.set = set
	m.current.selected = 0
	m.current.offset = 0
	m.scroll.Bind(set.Signature())
	return m.loadVisible()
}

func sectionTitle(section string) string {
	switch section {
	case "popular":
		return "Popular"
	case "closing":
		return "Closing soon"
	case "recommended":
		return "Recommended"
	case "liked":
		return "Liked"
	case "funded":
		return "Funded"
	case "created":
		return "Created"
	default:
		return section
	}
}
