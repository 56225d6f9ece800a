package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rfwave/netsdr/internal/session"
)

const (
	statsInterval = 500 * time.Millisecond
	freqStep      = 10_000 // Hz per up/down keypress
)

// SessionController is the slice of the session the monitor drives.
type SessionController interface {
	Stats() session.Stats
	StartStreaming(ctx context.Context) error
	StopStreaming(ctx context.Context) error
	ChangeFrequency(ctx context.Context, frequencyHz uint64, channel uint8) error
}

type keyMap struct {
	Toggle key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Toggle, k.Up, k.Down, k.Quit}}
}

var defaultKeys = keyMap{
	Toggle: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start/stop stream"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "+"),
		key.WithHelp("↑/+", "tune up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "-"),
		key.WithHelp("↓/-", "tune down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type tickMsg time.Time

type statsMsg session.Stats

type actionErrMsg struct{ err error }

// Monitor is the interactive session dashboard.
type Monitor struct {
	ctrl    SessionController
	channel uint8

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	stats   session.Stats
	lastErr error
	width   int
}

// NewMonitor creates a monitor for the given session.
func NewMonitor(ctrl SessionController, channel uint8) Monitor {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return Monitor{
		ctrl:    ctrl,
		channel: channel,
		keys:    defaultKeys,
		help:    help.New(),
		spinner: sp,
		width:   GetTerminalWidth(),
	}
}

// Init implements tea.Model.
func (m Monitor) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m Monitor) tick() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.width < MinTerminalWidth {
			m.width = MinTerminalWidth
		}
		if m.width > MaxContentWidth {
			m.width = MaxContentWidth
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			return m, m.toggleStreaming()
		case key.Matches(msg, m.keys.Up):
			return m, m.retune(int64(freqStep))
		case key.Matches(msg, m.keys.Down):
			return m, m.retune(-int64(freqStep))
		}
		return m, nil

	case tickMsg:
		stats := m.ctrl.Stats()
		return m, tea.Batch(
			func() tea.Msg { return statsMsg(stats) },
			m.tick(),
		)

	case statsMsg:
		m.stats = session.Stats(msg)
		return m, nil

	case actionErrMsg:
		m.lastErr = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Monitor) toggleStreaming() tea.Cmd {
	streaming := m.stats.Streaming
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		if streaming {
			err = m.ctrl.StopStreaming(ctx)
		} else {
			err = m.ctrl.StartStreaming(ctx)
		}
		return actionErrMsg{err: err}
	}
}

func (m Monitor) retune(deltaHz int64) tea.Cmd {
	current := int64(m.stats.FrequencyHz)
	next := current + deltaHz
	if next < 0 {
		next = 0
	}
	target := uint64(next)
	channel := m.channel
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionErrMsg{err: m.ctrl.ChangeFrequency(ctx, target, channel)}
	}
}

// View implements tea.Model.
func (m Monitor) View() string {
	var b strings.Builder

	title := TitleStyle.Render("RECEIVER MONITOR")
	if m.stats.Streaming {
		title += " " + m.spinner.View()
	}
	b.WriteString(title + "\n\n")

	b.WriteString(m.statLine("Connection", renderState(m.stats.Connected, "connected", "disconnected")))
	b.WriteString(m.statLine("Streaming", renderState(m.stats.Streaming, "running", "stopped")))
	b.WriteString(m.statLine("Frequency", formatFrequency(m.stats.FrequencyHz)))
	b.WriteString(m.statLine("Packets", fmt.Sprintf("%d", m.stats.PacketsRx)))
	b.WriteString(m.statLine("Samples", fmt.Sprintf("%d", m.stats.SamplesOut)))

	failures := ValueStyle.Render("0")
	if m.stats.DecodeFailures > 0 {
		failures = AlertStyle.Render(fmt.Sprintf("%d", m.stats.DecodeFailures))
	}
	b.WriteString(m.statLine("Decode failures", failures))

	gaps := ValueStyle.Render("0")
	if m.stats.SequenceGaps > 0 {
		gaps = AlertStyle.Render(fmt.Sprintf("%d", m.stats.SequenceGaps))
	}
	b.WriteString(m.statLine("Sequence gaps", gaps))

	if m.lastErr != nil {
		b.WriteString("\n" + AlertStyle.PaddingLeft(2).Render("error: "+m.lastErr.Error()) + "\n")
	}

	panel := BorderStyle(m.width).Render(b.String())

	return panel + "\n" + FooterStyle.Render(m.help.View(m.keys)) + "\n"
}

func (m Monitor) statLine(label, value string) string {
	return LabelStyle.Render(label+":") + " " + value + "\n"
}

func renderState(active bool, onText, offText string) string {
	if active {
		return ActiveStyle.Render(onText)
	}
	return IdleStyle.Render(offText)
}

func formatFrequency(hz uint64) string {
	switch {
	case hz >= 1_000_000:
		return ValueStyle.Render(fmt.Sprintf("%.6f MHz", float64(hz)/1e6))
	case hz >= 1_000:
		return ValueStyle.Render(fmt.Sprintf("%.3f kHz", float64(hz)/1e3))
	default:
		return ValueStyle.Render(fmt.Sprintf("%d Hz", hz))
	}
}

// Run starts the monitor program and blocks until it exits.
func Run(ctrl SessionController, channel uint8) error {
	p := tea.NewProgram(NewMonitor(ctrl, channel))
	_, err := p.Run()
	return err
}
