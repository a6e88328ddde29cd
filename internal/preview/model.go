package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	refreshInterval = time.Second / 30
	ledGlyph        = "●"
	defaultWidth    = 80
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	stripStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type refreshMsg time.Time

// StatusFunc returns a one-line status shown under the strip.
type StatusFunc func() string

// Model is the bubbletea model drawing a Transport.
type Model struct {
	src    *Transport
	status StatusFunc
	width  int
	frame  []colorful.Color
	frames uint64
}

// NewModel returns a model reading src. status may be nil.
func NewModel(src *Transport, status StatusFunc) Model {
	return Model{src: src, status: status, width: defaultWidth}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case refreshMsg:
		if m.src.Closed() {
			return m, tea.Quit
		}
		m.frame, m.frames = m.src.Latest()
		return m, refresh()
	}
	return m, nil
}

// cols returns how many LEDs fit on one terminal row inside the border.
func (m Model) cols() int {
	c := m.width - 4
	if c < 10 {
		c = 10
	}
	return c
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("marbles preview  %d LEDs", len(m.frame))))
	b.WriteString("\n")
	b.WriteString(stripStyle.Render(renderStrip(m.frame, m.cols())))
	b.WriteString("\n")
	status := fmt.Sprintf("frames %d", m.frames)
	if m.status != nil {
		status += "  " + m.status()
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q quit"))
	return b.String()
}

// renderStrip lays the LEDs out left to right, wrapping every cols LEDs.
// Dark LEDs are drawn dim grey so the strip outline stays visible.
func renderStrip(px []colorful.Color, cols int) string {
	if len(px) == 0 {
		return "waiting for first frame"
	}
	dark := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	var b strings.Builder
	for i, c := range px {
		if i > 0 && i%cols == 0 {
			b.WriteString("\n")
		}
		if c.R+c.G+c.B < 0.02 {
			b.WriteString(dark.Render(ledGlyph))
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Clamped().Hex())).Render(ledGlyph))
	}
	return b.String()
}

// Run shows the preview until the user quits or ctx is cancelled.
func Run(ctx context.Context, src *Transport, status StatusFunc) error {
	p := tea.NewProgram(NewModel(src, status), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
