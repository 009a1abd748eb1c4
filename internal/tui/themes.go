package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour scheme of the live view and CLI summaries.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Border  lipgloss.Color
	Label   lipgloss.Color
	Value   lipgloss.Color
	Running lipgloss.Color
	Idle    lipgloss.Color
	Error   lipgloss.Color
	Graph   lipgloss.Color
	Hint    lipgloss.Color
}

var (
	ThemeGlacier = Theme{
		Name:    "glacier",
		Title:   lipgloss.Color("#00ffff"),
		Border:  lipgloss.Color("#444466"),
		Label:   lipgloss.Color("#888899"),
		Value:   lipgloss.Color("#00ccff"),
		Running: lipgloss.Color("#00ff88"),
		Idle:    lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
		Graph:   lipgloss.Color("#66ddaa"),
		Hint:    lipgloss.Color("#666688"),
	}

	ThemeCanyon = Theme{
		Name:    "canyon",
		Title:   lipgloss.Color("#ff8c42"), // burnt orange
		Border:  lipgloss.Color("#6b3e26"),
		Label:   lipgloss.Color("#b08968"),
		Value:   lipgloss.Color("#ffd6a5"),
		Running: lipgloss.Color("#c9f29b"),
		Idle:    lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
		Graph:   lipgloss.Color("#e07a5f"),
		Hint:    lipgloss.Color("#8b6b5c"),
	}

	ThemeMoss = Theme{
		Name:    "moss",
		Title:   lipgloss.Color("#88ff88"),
		Border:  lipgloss.Color("#005500"),
		Label:   lipgloss.Color("#55aa55"),
		Value:   lipgloss.Color("#ccffcc"),
		Running: lipgloss.Color("#00ff00"),
		Idle:    lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
		Graph:   lipgloss.Color("#00cc00"),
		Hint:    lipgloss.Color("#337733"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Title:   lipgloss.Color("#ffffff"),
		Border:  lipgloss.Color("#555555"),
		Label:   lipgloss.Color("#888888"),
		Value:   lipgloss.Color("#ffffff"),
		Running: lipgloss.Color("#cccccc"),
		Idle:    lipgloss.Color("#888888"),
		Error:   lipgloss.Color("#ffffff"),
		Graph:   lipgloss.Color("#aaaaaa"),
		Hint:    lipgloss.Color("#666666"),
	}

	CurrentTheme = ThemeGlacier

	Themes = []Theme{ThemeGlacier, ThemeCanyon, ThemeMoss, ThemeMono}
)

// SetTheme switches every style to the named theme.
func SetTheme(name string) error {
	for _, t := range Themes {
		if t.Name == name {
			CurrentTheme = t
			applyTheme(t)
			return nil
		}
	}
	return fmt.Errorf("unknown theme: %s (available: %v)", name, ThemeNames())
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
