package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// RefreshInterval is how often the watch view re-reads the status.
const RefreshInterval = time.Second

// StatusReader returns the current status, e.g. by reading the flag file.
type StatusReader func() (Status, error)

type tickMsg time.Time

type statusMsg struct {
	status Status
	err    error
}

// WatchModel is a Bubble Tea model that keeps redrawing the status panel.
type WatchModel struct {
	read    StatusReader
	status  Status
	err     error
	spinner spinner.Model
	width   int
	loaded  bool
}

// NewWatchModel creates a watch model reading through read.
func NewWatchModel(read StatusReader) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = MutedStyle
	return WatchModel{
		read:    read,
		spinner: s,
		width:   GetTerminalWidth(),
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh)
}

func (m WatchModel) refresh() tea.Msg {
	st, err := m.read()
	return statusMsg{status: st, err: err}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = min(max(msg.Width, MinTerminalWidth), MaxContentWidth)
	case statusMsg:
		m.status, m.err, m.loaded = msg.status, msg.err, true
		return m, tick()
	case tickMsg:
		return m, m.refresh
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	if !m.loaded {
		return m.spinner.View() + " Reading status...\n"
	}
	out := RenderStatus(m.status, m.width) + "\n"
	if m.err != nil {
		out += ErrorStyle.Render(fmt.Sprintf("%s %v", FailureMarker, m.err)) + "\n"
	}
	return out + m.spinner.View() + MutedStyle.Render(" watching, q to quit") + "\n"
}

// Watch runs the watch view until the user quits.
func Watch(read StatusReader, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(NewWatchModel(read), opts...).Run()
	return err
}
