// Package tui renders engine frames in the terminal with Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scrollchart/engine"
)

const (
	COMMAND_TIMEOUT = 2 * time.Second
	// label, latest value and range columns around each sparkline
	SERIES_GUTTER = 40
	MIN_SPARK     = 10
)

// Commands are the chart operations the keyboard can trigger.
type Commands interface {
	ClearChart(ctx context.Context, key string) error
	ToggleScroll(ctx context.Context, key string) (bool, error)
}

type frameMsg struct {
	frame *engine.Frame
}

// framesClosedMsg is sent once the frame subscription ends.
type framesClosedMsg struct{}

type commandDoneMsg struct {
	chart string
	err   error
}

type Model struct {
	commands Commands
	frames   <-chan *engine.Frame

	order    []string
	charts   map[string]*engine.Frame
	selected int

	help   help.Model
	width  int
	height int
	ready  bool
	status string
}

// NewModel shows initial straight away and then follows frames.
func NewModel(commands Commands, frames <-chan *engine.Frame, initial []*engine.Frame) Model {
	m := Model{
		commands: commands,
		frames:   frames,
		charts:   make(map[string]*engine.Frame),
		help:     help.New(),
	}
	for _, frame := range initial {
		m.apply(frame)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

func waitForFrame(frames <-chan *engine.Frame) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-frames
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg{frame: frame}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case frameMsg:
		m.apply(msg.frame)
		return m, waitForFrame(m.frames)

	case framesClosedMsg:
		m.status = "engine stopped"
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.chart, msg.err)
		} else {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Next):
		if len(m.order) > 0 {
			m.selected = (m.selected + 1) % len(m.order)
		}
	case key.Matches(msg, keys.Prev):
		if len(m.order) > 0 {
			m.selected = (m.selected - 1 + len(m.order)) % len(m.order)
		}
	case key.Matches(msg, keys.Clear):
		if chart, ok := m.Selected(); ok {
			return m, m.clear(chart)
		}
	case key.Matches(msg, keys.Pause):
		if chart, ok := m.Selected(); ok {
			return m, m.toggle(chart)
		}
	}
	return m, nil
}

func (m Model) clear(chart string) tea.Cmd {
	commands := m.commands
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), COMMAND_TIMEOUT)
		defer cancel()
		return commandDoneMsg{chart: chart, err: commands.ClearChart(ctx, chart)}
	}
}

func (m Model) toggle(chart string) tea.Cmd {
	commands := m.commands
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), COMMAND_TIMEOUT)
		defer cancel()
		_, err := commands.ToggleScroll(ctx, chart)
		return commandDoneMsg{chart: chart, err: err}
	}
}

// apply replaces the stored copy of a chart, keeping charts in first-seen order.
func (m *Model) apply(frame *engine.Frame) {
	if frame == nil {
		return
	}
	if _, ok := m.charts[frame.ChartKey]; !ok {
		m.order = append(m.order, frame.ChartKey)
	}
	m.charts[frame.ChartKey] = frame
}

// Selected returns the key of the chart the keyboard acts on.
func (m Model) Selected() (string, bool) {
	if len(m.order) == 0 {
		return "", false
	}
	return m.order[m.selected], true
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if len(m.order) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, styleLabel.Render("waiting for data..."), m.renderFooter())
	}

	var blocks []string
	for i, chart := range m.order {
		blocks = append(blocks, m.renderChart(m.charts[chart], i == m.selected))
	}
	blocks = append(blocks, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (m Model) renderChart(frame *engine.Frame, selected bool) string {
	title := styleTitle.Render(frame.Title)
	if !frame.AutoScroll {
		title += " " + stylePaused.Render("paused")
	}
	lines := []string{title}

	sparkWidth := max(MIN_SPARK, m.width-SERIES_GUTTER)
	for _, s := range frame.Series {
		label := s.Label
		if label == "" {
			label = s.Key
		}
		latest := "-"
		if s.HasLatest {
			latest = formatValue(s.Latest.Y()) + s.Unit
		}
		spark := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Colour)).
			Render(Sparkline(s.Points, sparkWidth, s.Range.YMin, s.Range.YMax))
		lines = append(lines, fmt.Sprintf("%-12s %s %8s %s",
			truncate(label, 12),
			spark,
			latest,
			styleLabel.Render("["+formatValue(s.Range.YMin)+", "+formatValue(s.Range.YMax)+"]"),
		))
	}
	if len(frame.Series) == 0 {
		lines = append(lines, styleLabel.Render("no series"))
	}

	style := styleChart
	if selected {
		style = styleSelected
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	footer := m.help.View(keys)
	if m.status != "" {
		footer += "  " + stylePaused.Render(m.status)
	}
	return styleFooter.Render(footer)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
