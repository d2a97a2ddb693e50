// Package tui provides a Bubble Tea terminal user interface for lrc-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/lrc-downloader/internal/config"
	"github.com/handiism/lrc-downloader/internal/download"
	"github.com/handiism/lrc-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateStarting
	StateRunning
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  config.Settings
	logs      []LogEntry
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent
	report  *download.Report

	snapshot download.Progress

	// Options
	verbose bool
	dryRun  bool
	closest bool

	width  int
	height int
}

// NewModel creates a new TUI model. The library path input starts with
// settings.LibraryPath.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "/path/to/music"
	ti.SetValue(settings.LibraryPath)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  *settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		closest:   strings.EqualFold(settings.SearchStrategy, "closest"),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one event from the download manager.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// StartedMsg is sent once the manager has been created.
	StartedMsg struct {
		Manager *download.Manager
		Events  chan download.ProgressEvent
		Err     error
	}

	// RunDoneMsg is sent when every file has been handled.
	RunDoneMsg struct {
		Report *download.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateRunning || m.state == StateStarting {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateStarting
				return m, tea.Batch(m.start(), m.spinner.Tick)
			}

		case "alt+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "alt+d":
			if m.state == StateInput {
				m.dryRun = !m.dryRun
				return m, nil
			}

		case "alt+s":
			if m.state == StateInput {
				m.closest = !m.closest
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.report = nil
				m.manager = nil
				m.events = nil
				m.snapshot = download.Progress{}
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.Focus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		m.addLog(msg.Event)
		if m.events != nil {
			cmds = append(cmds, waitForEvent(m.events))
		}

	case StartedMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.manager = msg.Manager
		m.events = msg.Events
		m.state = StateRunning
		cmds = append(cmds, m.run(), waitForEvent(m.events), m.tickProgress())

	case RunDoneMsg:
		m.report = msg.Report
		if m.manager != nil {
			m.snapshot = m.manager.GetProgress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateRunning {
			m.snapshot = m.manager.GetProgress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) addLog(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !m.verbose {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// percent is processed over discovered files. Discovery runs ahead of
// processing, so the bar can move backwards while the walk is still going.
func (m Model) percent() float64 {
	if m.snapshot.Discovered == 0 {
		return 0
	}
	return float64(m.snapshot.Processed) / float64(m.snapshot.Discovered)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next progress event as a message.
func waitForEvent(events <-chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ LRC Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Fetch synchronized lyrics for your music library"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateStarting:
		b.WriteString(m.viewStarting())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Music library:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (alt+v)\n", check(m.verbose)))
	b.WriteString(fmt.Sprintf("  %s Dry run, no downloads (alt+d)\n", check(m.dryRun)))
	b.WriteString(fmt.Sprintf("  %s Pick the closest search result (alt+s)\n", check(m.closest)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Site: %s | %d concurrent requests | %s",
		m.settings.BaseURL, m.settings.MaxConcurrentRequests, m.settings.ResolverLayout)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewStarting() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Opening library..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(m.textInput.Value()))
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %d | In flight: %d | Received: %.1f KB",
		m.snapshot.Processed,
		m.snapshot.Discovered,
		m.snapshot.Downloaded,
		m.snapshot.InFlight,
		float64(m.snapshot.ReceivedBytes)/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	lines := []string{"✓ Done!", ""}
	if m.report != nil {
		lines = append(lines, fmt.Sprintf("Files: %d", m.report.Summary.Total()))
		for _, o := range []model.Outcome{
			model.OutcomeDownloaded,
			model.OutcomeSkipped,
			model.OutcomePlanned,
			model.OutcomeNoSearchResult,
			model.OutcomeNoLyricsFile,
			model.OutcomeKnownMiss,
			model.OutcomeMissingMetadata,
			model.OutcomeUnsupportedFormat,
			model.OutcomeTransportError,
			model.OutcomeFilesystemError,
		} {
			if n := m.report.Summary.Count(o); n > 0 {
				lines = append(lines, fmt.Sprintf("%s: %d", o, n))
			}
		}
		lines = append(lines, fmt.Sprintf("Time: %s", m.report.Elapsed.Round(time.Millisecond)))
		if m.report.ReportPath != "" {
			lines = append(lines, "Report: "+m.report.ReportPath)
		}
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • alt+v: verbose • alt+d: dry run • alt+s: closest match • esc: quit"
	case StateStarting, StateRunning:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// runSettings returns the settings for the next run with the UI options applied.
func (m Model) runSettings() config.Settings {
	settings := m.settings
	settings.LibraryPath = strings.TrimSpace(m.textInput.Value())
	if m.closest {
		settings.SearchStrategy = "closest"
	} else {
		settings.SearchStrategy = "first"
	}
	return settings
}

// start creates the manager. Progress events flow through a buffered
// channel that the UI drains one message at a time.
func (m Model) start() tea.Cmd {
	settings := m.runSettings()
	dryRun := m.dryRun
	return func() tea.Msg {
		events := make(chan download.ProgressEvent, 256)
		ctx := m.ctx

		manager, err := download.NewManager(settings,
			download.WithDryRun(dryRun),
			download.WithProgress(func(event download.ProgressEvent) {
				select {
				case events <- event:
				case <-ctx.Done():
				}
			}),
		)
		if err != nil {
			return StartedMsg{Err: err}
		}
		return StartedMsg{Manager: manager, Events: events}
	}
}

// run walks the library in the background and closes the event channel
// when it is done.
func (m Model) run() tea.Cmd {
	manager, events, ctx := m.manager, m.events, m.ctx
	root := strings.TrimSpace(m.textInput.Value())
	return func() tea.Msg {
		report, err := manager.RunLibrary(ctx, root)
		close(events)
		return RunDoneMsg{Report: report, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
