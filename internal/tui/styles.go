package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle  lipgloss.Style
	panelStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	runningStyle lipgloss.Style
	idleStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	graphStyle   lipgloss.Style
	hintStyle    lipgloss.Style
)

func init() { applyTheme(CurrentTheme) }

func applyTheme(t Theme) {
	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Title).
		MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
		Foreground(t.Label).
		Width(16)

	valueStyle = lipgloss.NewStyle().
		Foreground(t.Value).
		Bold(true)

	runningStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Running)

	idleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Idle)

	errorStyle = lipgloss.NewStyle().
		Foreground(t.Error)

	graphStyle = lipgloss.NewStyle().
		Foreground(t.Graph)

	hintStyle = lipgloss.NewStyle().
		Foreground(t.Hint).
		Italic(true)
}

// Summary renders label/value pairs the way the live view does, for
// one-shot CLI output.
func Summary(title string, rows [][2]string) string {
	out := headerStyle.Render(title) + "\n"
	for _, r := range rows {
		out += labelStyle.Render(r[0]) + valueStyle.Render(r[1]) + "\n"
	}
	return panelStyle.Render(out)
}
