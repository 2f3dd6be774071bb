package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/daeyeon-lee/cinemoa/internal/listing"
)

var printer = message.NewPrinter(language.Korean)

// truncate shortens value to at most limit terminal cells, adding an
// ellipsis when anything was cut. Wide runes count as two cells.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || lipgloss.Width(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// padRight pads value with spaces to width cells.
func padRight(value string, width int) string {
	if gap := width - lipgloss.Width(value); gap > 0 {
		return value + strings.Repeat(" ", gap)
	}
	return value
}

func formatPrice(won int) string {
	return printer.Sprintf("%d원", won)
}

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// formatRemaining renders the time left until end relative to now.
func formatRemaining(end, now time.Time) string {
	if end.IsZero() {
		return ""
	}
	d := end.Sub(now)
	switch {
	case d <= 0:
		return "closed"
	case d < time.Hour:
		return fmt.Sprintf("%dm left", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh left", int(d.Hours()))
	default:
		return fmt.Sprintf("D-%d", int(d.Hours()/24))
	}
}

// itemSummary is the one-line detail shown next to an item title.
func itemSummary(it listing.Item, now time.Time) string {
	switch {
	case it.Funding != nil:
		f := it.Funding
		parts := []string{
			f.CinemaName,
			f.ScreeningDate.Format("01/02 15:04"),
			formatPrice(f.Price),
			fmt.Sprintf("%.0f%% (%d/%d)", f.FundingRate, f.Participants, f.MaxParticipants),
			formatRemaining(f.EndsAt, now),
		}
		return joinNonEmpty(parts, " · ")
	case it.Vote != nil:
		return joinNonEmpty([]string{
			formatCount(it.Vote.SupportCount) + " supporters",
			formatRemaining(it.Vote.EndsAt, now),
		}, " · ")
	default:
		return ""
	}
}

// closed reports whether the item's deadline has passed.
func closed(it listing.Item, now time.Time) bool {
	var end time.Time
	switch {
	case it.Funding != nil:
		end = it.Funding.EndsAt
	case it.Vote != nil:
		end = it.Vote.EndsAt
	}
	return !end.IsZero() && !end.After(now)
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
