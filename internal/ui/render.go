package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
	"github.com/daeyeon-lee/cinemoa/internal/scroll"
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderFilterBar())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	return b.String()
}

// renderHeader renders the logo, the screen title and history depth.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("cinemoa", styles.Logo),
		bg.Render(m.screenTitle(), styles.Text.Bold(true)),
	}
	if n := len(m.history); n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("↶ %d", n), styles.FaintText))
	}
	if m.viewerID > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("viewer %d", m.viewerID), styles.MutedText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) screenTitle() string {
	switch m.current.kind {
	case screenSection, screenProfile:
		return m.current.kind.String() + ": " + sectionTitle(m.current.set.Section)
	case screenSearch:
		if q := m.current.set.Query; q != "" {
			return fmt.Sprintf("Search: %q", q)
		}
		return "Search"
	default:
		return m.current.kind.String()
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{{"j/k", "Navigate"}, {"L", "Like"}}

	switch m.current.kind {
	case screenHome:
		commands = append(commands, cmd{"enter", "Open"}, cmd{"tab", "Section"})
	case screenProfile:
		commands = append(commands, cmd{"m", "More"}, cmd{"tab", "List"})
	case screenSection:
		commands = append(commands, cmd{"m", "More"})
	default:
		commands = append(commands, cmd{"m", "More"}, cmd{"/", "Search"}, cmd{"f", "Filters"}, cmd{"s", "Sort"}, cmd{"c", "Closed"})
	}
	commands = append(commands, cmd{"1-4", "Views"})
	if len(m.history) > 0 {
		commands = append(commands, cmd{"esc", "Back"})
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderFilterBar shows the committed filters, or the query input while
// searching.
func (m Model) renderFilterBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)

	if m.searching {
		return bg.FillLine(bg.Render("/", styles.AccentText)+bg.Space()+m.queryInput.View(), m.width)
	}
	if !m.current.filterable() {
		return bg.FillLine("", m.width)
	}

	set := m.staging.Committed()
	parts := make([]string, 0, 5)
	for _, f := range filterSummary(set) {
		parts = append(parts, bg.Render(f.label+":", styles.FaintText)+bg.Space()+bg.Render(f.value, styles.Text))
	}
	if m.staging.Layout() == filter.LayoutWide {
		parts = append(parts, bg.Render("inline", styles.FaintText))
	}
	return bg.FillLine(bg.Join(parts, " · "), m.width)
}

type summaryField struct{ label, value string }

func filterSummary(set filter.FilterSet) []summaryField {
	return []summaryField{
		{"Sort", set.Sort.Label()},
		{"Category", categoryLabel(set.Category)},
		{"Region", listOrAny(set.Regions)},
		{"Venue", listOrAny(set.VenueTypes)},
		{"Closed", yesNo(set.IncludeClosed)},
	}
}

func categoryLabel(c filter.Category) string {
	for _, opt := range categoryOptions {
		if sameCategory(opt.category, c) {
			return opt.label
		}
	}
	if len(c.Leaves) > 0 {
		return fmt.Sprintf("%d subcategories", len(c.Leaves))
	}
	return fmt.Sprintf("#%d", c.TopLevel)
}

func sameCategory(a, b filter.Category) bool {
	a = filter.FilterSet{Category: a}.Normalize().Category
	b = filter.FilterSet{Category: b}.Normalize().Category
	return a.TopLevel == b.TopLevel && slices.Equal(a.Leaves, b.Leaves)
}

func listOrAny(values []string) string {
	if len(values) == 0 {
		return "Any"
	}
	return strings.Join(values, ",")
}

func yesNo(v bool) string {
	if v {
		return "shown"
	}
	return "hidden"
}

// renderList renders the visible window of rows.
func (m Model) renderList() string {
	styles := m.theme.Styles()
	height := m.listHeight()
	rows := m.rows()

	lines := make([]string, 0, height)
	if len(rows) == 0 || (m.current.kind == screenHome && !m.anyItems(rows)) {
		lines = append(lines, styles.MutedText.Render(m.emptyText()))
	}
	end := min(m.current.offset+height, len(rows))
	for i := m.current.offset; i < end && len(lines) < height; i++ {
		lines = append(lines, m.renderRow(rows[i], i == m.current.selected))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) anyItems(rows []row) bool {
	for _, r := range rows {
		if !r.isHeader() {
			return true
		}
	}
	return false
}

func (m Model) emptyText() string {
	for _, sig := range m.signatures() {
		if err := m.errs[sig]; err != nil {
			return "Could not load: " + err.Error()
		}
		if m.loading[sig] {
			return "Loading..."
		}
	}
	return "Nothing here yet"
}

func (m Model) renderRow(r row, selected bool) string {
	styles := m.theme.Styles()
	if r.isHeader() {
		title := styles.AccentText.Bold(true).Render(r.header)
		if entry, ok := m.fetcher.Cache().Get(r.sig); ok && entry.Stale {
			title += " " + styles.FaintText.Render("(refreshing)")
		}
		return title
	}

	it := r.item
	now := m.now()
	heart := "♡"
	heartStyle := styles.MutedText
	if it.Liked {
		heart = "♥"
		heartStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.BadgeColors["LIKED"]))
	}
	badge := string(it.Kind)
	if closed(it, now) {
		badge = "CLOSED"
	}

	left := fmt.Sprintf("%s %-4s", heart, formatCount(it.LikeCount))
	kind := styles.BadgeStyle(badge).Render(padRight(badge, 7))
	titleWidth := 32
	if m.width >= LayoutCompactWidth {
		titleWidth = 40
	}
	title := padRight(truncate(it.Title, titleWidth), titleWidth)

	line := heartStyle.Render(left) + " " + kind + " " + styles.Text.Render(title)
	if m.width >= LayoutCompactWidth {
		summary := itemSummary(it, now)
		room := m.width - lipgloss.Width(line) - 2
		if room > 8 {
			line += "  " + styles.MutedText.Render(truncate(summary, room))
		}
	}
	if selected {
		return styles.Selected.Width(m.width).Render(line)
	}
	return line
}

// renderStatus renders the notice or the scroll state of the listing.
func (m Model) renderStatus() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var parts []string
	if m.notice != "" {
		style := styles.SuccessText
		if m.noticeIsErr {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(m.notice, style))
	}
	if m.current.scrollable() {
		if entry, ok := m.fetcher.Cache().Get(m.current.set.Signature()); ok {
			parts = append(parts, bg.Render(scrollLabel(m.scroll.State(), entry), styles.MutedText))
		}
	}
	return styles.Footer.Width(m.width).Render(bg.Join(parts, "  "))
}

func scrollLabel(state scroll.State, entry listing.Entry) string {
	count := fmt.Sprintf("%d items", entry.Len())
	switch {
	case state == scroll.StateFetchPending:
		return count + " · loading more"
	case entry.Stale:
		return count + " · refreshing"
	case !entry.HasNext():
		return count + " · end"
	default:
		return count
	}
}

// renderSheet renders the filter editor as a centered modal.
func (m Model) renderSheet() string {
	styles := m.theme.Styles()
	value := m.sheetValue()

	var b strings.Builder
	title := "Filters"
	if m.sheetDraft() {
		title += " (draft)"
	}
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n\n")

	for row := sheetRow(0); row < sheetRowCount; row++ {
		label := sheetAxes[row].String()
		cursor := "  "
		if row == m.sheet.row {
			cursor = styles.AccentText.Render("▸ ")
		}
		b.WriteString(cursor)
		b.WriteString(styles.MutedText.Width(10).Render(label))
		b.WriteString(m.renderSheetOptions(row, value))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	hint := "space toggle · ←/→ option · x clear · esc close"
	if m.sheetDraft() {
		hint = "space toggle · ←/→ option · x clear · a apply · esc discard"
	}
	b.WriteString(styles.FaintText.Render(hint))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) renderSheetOptions(row sheetRow, value filter.FilterSet) string {
	styles := m.theme.Styles()
	active := row == m.sheet.row

	option := func(i int, label string, on bool) string {
		style := styles.FaintText
		if on {
			style = styles.Text.Bold(true)
		}
		if active && i == m.sheet.option {
			style = style.Underline(true)
		}
		return style.Render(label)
	}

	var opts []string
	switch row {
	case sheetRowSort:
		return styles.Text.Render(value.Sort.Label())
	case sheetRowClosed:
		return styles.Text.Render(yesNo(value.IncludeClosed))
	case sheetRowCategory:
		current := categoryLabel(value.Category)
		for i, c := range categoryOptions {
			opts = append(opts, option(i, c.label, c.label == current))
		}
	case sheetRowRegion:
		for i, r := range regionOptions {
			opts = append(opts, option(i, r, slices.Contains(value.Regions, r)))
		}
	case sheetRowVenue:
		for i, v := range venueOptions {
			opts = append(opts, option(i, v, slices.Contains(value.VenueTypes, v)))
		}
	}
	return strings.Join(opts, " ")
}
