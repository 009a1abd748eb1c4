package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/erosim/internal/erosion"
)

const (
	tickInterval = 100 * time.Millisecond
	// scoreEvery ticks between roughness samples
	scoreEvery = 5
	historyLen = 120
)

// Engine is what the live view drives.
type Engine interface {
	Start(erosion.Backend) error
	Stop()
	Step() int
	Eroding() bool
	Score() (float64, error)
	Params() erosion.Params
	SetWaterPreview(bool)
	LastError() error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model of a live erosion run.
type Model struct {
	engine  Engine
	preview *Preview
	backend erosion.Backend

	started time.Time
	ticks   int
	step    int
	eroding bool
	water   bool
	history []float64
	lines   []string
	err     error
}

func NewModel(e Engine, p *Preview, b erosion.Backend) Model {
	return Model{engine: e, preview: p, backend: b, water: true}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.start(), tick())
}

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.engine.Start(m.backend)}
	}
}

type startedMsg struct{ err error }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.engine.Stop()
			return m, tea.Quit
		case " ", "s":
			if m.engine.Eroding() {
				m.engine.Stop()
				return m, nil
			}
			m.started = time.Time{}
			return m, m.start()
		case "w":
			m.water = !m.water
			m.engine.SetWaterPreview(m.water)
		}
	case startedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.started = time.Now()
		}
	case tickMsg:
		m.ticks++
		m.step = m.engine.Step()
		m.eroding = m.engine.Eroding()
		if err := m.engine.LastError(); err != nil {
			m.err = err
		}
		if m.preview != nil && m.preview.NeedsUpload() {
			if lines, _ := m.preview.Take(); lines != nil {
				m.lines = lines
			}
		}
		if m.ticks%scoreEvery == 0 || (!m.eroding && len(m.history) == 0) {
			m.sample()
		}
		return m, tick()
	}
	return m, nil
}

// sample records the current roughness. Scores taken mid-run read a
// buffer that is being written and are approximate.
func (m *Model) sample() {
	score, err := m.engine.Score()
	if err != nil {
		return
	}
	m.history = append(m.history, score)
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("EROSION "+strings.ToUpper(m.backend.String())) + "\n")

	status := idleStyle.Render("IDLE")
	if m.eroding {
		status = runningStyle.Render("ERODING")
	}
	s.WriteString(status + "\n\n")

	total := m.engine.Params().Steps
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d / %d", m.step, total)) + "\n")
	s.WriteString(labelStyle.Render("Progress") + progressBar(m.step, total, 30) + "\n")
	if !m.started.IsZero() && m.step > 0 {
		rate := float64(m.step) / time.Since(m.started).Seconds()
		s.WriteString(labelStyle.Render("Rate") + valueStyle.Render(fmt.Sprintf("%.1f steps/s", rate)) + "\n")
	}
	if n := len(m.history); n > 0 {
		s.WriteString(labelStyle.Render("Roughness") + valueStyle.Render(fmt.Sprintf("%.4f", m.history[n-1])) + "\n")
	}
	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("roughness"))
		s.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}
	if len(m.lines) > 0 {
		s.WriteString("\n" + panelStyle.Render(strings.Join(m.lines, "\n")) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + hintStyle.Render("space start/stop · w water · q quit") + "\n")
	return s.String()
}

func progressBar(step, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(step*width/total, width)
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// Run shows the live view until the user quits.
func Run(e Engine, p *Preview, b erosion.Backend) error {
	_, err := tea.NewProgram(NewModel(e, p, b)).Run()
	return err
}
