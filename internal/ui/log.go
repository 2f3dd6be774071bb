package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/daeyeon-lee/cinemoa/internal/logging"
)

// renderLog renders the most recent log records that fit on screen.
func (m Model) renderLog() string {
	styles := m.theme.Styles()
	height := max(m.height-4, 1)
	width := max(m.width-4, 20)

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Recent log"))
	b.WriteString("\n")

	lines := m.logLines
	if len(lines) > height-1 {
		lines = lines[len(lines)-(height-1):]
	}
	if len(lines) == 0 {
		hint := "No log records"
		if m.logPath == "" {
			hint = "Logging is disabled"
		}
		b.WriteString(styles.MutedText.Render(hint))
	}
	for i, line := range lines {
		b.WriteString(m.renderLogLine(line, width))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) renderLogLine(line logging.Line, width int) string {
	styles := m.theme.Styles()
	if line.Message == "" && line.Level == "" {
		return styles.FaintText.Render(truncate(line.Raw, width))
	}

	levelStyle := styles.MutedText
	switch line.Level {
	case "warn":
		levelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning))
	case "error", "fatal", "panic":
		levelStyle = styles.DangerText
	}

	parts := []string{
		styles.FaintText.Render(line.Time.Local().Format("15:04:05")),
		levelStyle.Render(padRight(strings.ToUpper(line.Level), 5)),
	}
	if line.Component != "" {
		parts = append(parts, styles.AccentText.Render(line.Component))
	}
	msg := line.Message
	if line.Err != "" {
		msg += ": " + line.Err
	}
	used := lipgloss.Width(strings.Join(parts, " ")) + 1
	parts = append(parts, styles.Text.Render(truncate(msg, max(width-used, 8))))
	return strings.Join(parts, " ")
}
