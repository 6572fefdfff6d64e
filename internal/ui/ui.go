// Package ui renders snapshots: Line for printing and a bubbletea panel
// with the load graph and an alarm banner.
package ui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/hardmon/internal/history"
	"github.com/Dicklesworthstone/hardmon/internal/model"
	"github.com/Dicklesworthstone/hardmon/internal/notify"
)

// Options configures the panel.
type Options struct {
	Period time.Duration
	// GraphWindow is the time span of the load graph.
	GraphWindow time.Duration
	ShowGraph   bool
	TopSlots    int
	// Sink receives the alarms of every snapshot; nil disables it.
	Sink   notify.Sink
	Logger *slog.Logger
}

// Model renders live snapshots from a monitor.
type Model struct {
	opts    Options
	keys    KeyMap
	latest  model.Snapshot
	stream  <-chan model.Snapshot
	cancel  context.CancelFunc
	history *history.Series
	graph   bool
	width   int
	height  int
}

// New returns a panel reading stream. cancel is called on quit and should
// stop whatever feeds stream.
func New(stream <-chan model.Snapshot, cancel context.CancelFunc, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.TopSlots <= 0 {
		opts.TopSlots = DefaultTopSlots
	}
	return &Model{
		opts:    opts,
		keys:    DefaultKeyMap,
		latest:  model.Zero(),
		stream:  stream,
		cancel:  cancel,
		history: history.New(opts.GraphWindow, opts.Period, history.DefaultGroup),
		graph:   opts.ShowGraph,
		width:   120,
		height:  3,
	}
}

// Messages
type (
	tickMsg     struct{}
	notifiedMsg struct{ err error }
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Graph):
			m.graph = !m.graph
		}
	case notifiedMsg:
		if msg.err != nil {
			m.opts.Logger.Warn("alarm notification failed", "error", msg.err)
		}
	case tickMsg:
		select {
		case snap, ok := <-m.stream:
			if !ok {
				return m, tea.Quit
			}
			return m, tea.Batch(m.apply(snap), tickCmd())
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

// apply records a snapshot and returns the notification command, if any.
func (m *Model) apply(snap model.Snapshot) tea.Cmd {
	m.latest = snap
	if snap.CPU.RatesOK {
		m.history.Add(snap.CPU.Load)
	}
	if m.opts.Sink == nil {
		return nil
	}
	sink, alarms := m.opts.Sink, snap.AlarmStrings()
	return func() tea.Msg {
		return notifiedMsg{err: sink.Notify(context.Background(), alarms)}
	}
}

// Styles
var (
	lineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
	alarmStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

func (m *Model) View() string {
	s := m.latest
	var top string
	if len(s.Alarms) > 0 {
		top = alarmStyle.Width(m.width).Align(lipgloss.Center).Render(strings.Join(s.AlarmStrings(), " "))
	} else {
		top = lineStyle.Render(Line(s, m.opts.TopSlots))
	}
	if !m.graph {
		return top
	}
	graph := Sparkline(m.history.Points(), m.history.Ceiling(s.CPU.Cores), m.width)
	return lipgloss.JoinVertical(lipgloss.Left, top, graphStyle.Render(graph))
}

// RunTUI starts the Bubble Tea program and blocks until it quits.
func RunTUI(stream <-chan model.Snapshot, cancel context.CancelFunc, opts Options) error {
	prog := tea.NewProgram(New(stream, cancel, opts))
	_, err := prog.Run()
	return err
}
