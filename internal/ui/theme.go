package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette.
type Theme struct {
	Name string

	Background string
	Surface    string
	Selection  string
	OnSelect   string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string

	// Badge colors keyed by item kind or state: FUNDING, VOTE, CLOSED, LIKED.
	BadgeColors map[string]string
}

// Styles holds the lipgloss styles derived from a Theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	DangerText  lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	badgeColors map[string]string
	background  string
	muted       string
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles builds the styles for t.
func (t Theme) Styles() Styles {
	bar := lipgloss.NewStyle().Background(lipgloss.Color(t.Surface)).Padding(0, 1)
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		DangerText:  fg(t.Danger).Bold(true),

		Header:   bar.Foreground(lipgloss.Color(t.Text)),
		Footer:   bar.Foreground(lipgloss.Color(t.Muted)),
		Logo:     fg(t.Warning).Bold(true),
		Selected: fg(t.OnSelect).Background(lipgloss.Color(t.Selection)),

		badgeColors: t.BadgeColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// BadgeStyle returns the chip style for an item kind or state. Unknown
// badges use the muted color.
func (s Styles) BadgeStyle(badge string) lipgloss.Style {
	color := s.badgeColors[badge]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground returns a copy whose styles paint bgColor behind the text,
// for use inside bars that already have a background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	for _, st := range []*lipgloss.Style{
		&out.Text, &out.MutedText, &out.FaintText, &out.AccentText,
		&out.SuccessText, &out.DangerText,
		&out.Header, &out.Footer, &out.Logo, &out.Selected,
	} {
		*st = st.Background(bg)
	}
	return out
}

// themes lists the palettes in cycle order. The first one is the default.
var themes = []Theme{
	{
		// https://github.com/EdenEast/nightfox.nvim
		Name:       "Nightfox",
		Background: "#131a24",
		Surface:    "#192330",
		Selection:  "#2b3b51",
		OnSelect:   "#cdcecf",
		Text:       "#cdcecf",
		Muted:      "#738091",
		Faint:      "#71839b",
		Accent:     "#719cd6",
		Success:    "#81b29a",
		Warning:    "#dbc074",
		Danger:     "#c94f6d",
		BadgeColors: map[string]string{
			"FUNDING": "#719cd6",
			"VOTE":    "#9d79d6",
			"CLOSED":  "#738091",
			"LIKED":   "#c94f6d",
		},
	},
	{
		// https://github.com/rebelot/kanagawa.nvim
		Name:       "Kanagawa",
		Background: "#16161D",
		Surface:    "#1F1F28",
		Selection:  "#2D4F67",
		OnSelect:   "#DCD7BA",
		Text:       "#DCD7BA",
		Muted:      "#C8C093",
		Faint:      "#727169",
		Accent:     "#7E9CD8",
		Success:    "#98BB6C",
		Warning:    "#E6C384",
		Danger:     "#E46876",
		BadgeColors: map[string]string{
			"FUNDING": "#7E9CD8",
			"VOTE":    "#957FB8",
			"CLOSED":  "#727169",
			"LIKED":   "#E46876",
		},
	},
	{
		// Tailwind slate and sky
		Name:       "Slate",
		Background: "#020617",
		Surface:    "#0f172a",
		Selection:  "#0284c7",
		OnSelect:   "#f8fafc",
		Text:       "#f1f5f9",
		Muted:      "#94a3b8",
		Faint:      "#64748b",
		Accent:     "#38bdf8",
		Success:    "#22c55e",
		Warning:    "#f59e0b",
		Danger:     "#ef4444",
		BadgeColors: map[string]string{
			"FUNDING": "#0ea5e9",
			"VOTE":    "#06b6d4",
			"CLOSED":  "#64748b",
			"LIKED":   "#dc2626",
		},
	},
}

// GetTheme returns the theme called name, or the default theme.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the theme name after current, wrapping around.
func NextTheme(current string) string {
	for i, t := range themes {
		if t.Name == current {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}
