package progress

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Digital-Shane/autotag/internal/core"
	"github.com/Digital-Shane/autotag/internal/media"
	"github.com/Digital-Shane/autotag/internal/runner"
	"github.com/Digital-Shane/autotag/internal/tui/theme"
)

const maxLogLines = 8

// TagProgressModel is a Bubble Tea model that runs a batch of jobs and shows
// overall progress, the files in flight and the latest status messages.
type TagProgressModel struct {
	runner *runner.Runner
	jobs   []media.Job

	ctx    context.Context
	cancel context.CancelFunc
	events chan runner.Event
	done   chan struct{}
	result runner.Summary
	begun  bool

	// progress
	processed int
	succeeded int
	failed    int
	active    map[int]string
	lines     []logLine
	summary   runner.Summary
	finished  bool
	cancelled bool

	// layout
	width    int
	height   int
	progress progress.Model
	theme    theme.Theme
}

type logLine struct {
	file     string
	message  string
	severity core.Severity
}

// tagEventMsg wraps one runner event.
type tagEventMsg struct{ ev runner.Event }

// tagFinishedMsg carries the run summary once every job has completed.
type tagFinishedMsg struct{ summary runner.Summary }

// NewTagProgressModel prepares a model that processes jobs with r once started.
func NewTagProgressModel(ctx context.Context, r *runner.Runner, jobs []media.Job, th theme.Theme) *TagProgressModel {
	from, to := th.ProgressGradient()
	p := progress.New(progress.WithGradient(from, to))
	p.Width = 50

	ctx, cancel := context.WithCancel(ctx)
	return &TagProgressModel{
		runner:   r,
		jobs:     jobs,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan runner.Event, 64),
		done:     make(chan struct{}),
		active:   make(map[int]string),
		width:    80,
		height:   20,
		progress: p,
		theme:    th,
	}
}

// Init starts the run in the background.
func (m *TagProgressModel) Init() tea.Cmd {
	m.begun = true
	go func() {
		m.result = m.runner.Run(m.ctx, m.jobs, m.events)
		close(m.done)
	}()
	return m.waitForEvent()
}

func (m *TagProgressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			<-m.done
			return tagFinishedMsg{summary: m.result}
		}
		return tagEventMsg{ev: ev}
	}
}

// Update processes Bubble Tea messages.
func (m *TagProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(msg.Width-4, 10)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			m.cancelled = true
			m.cancel()
			return m, tea.Quit
		}
	case tagEventMsg:
		cmd := m.apply(msg.ev)
		return m, tea.Batch(cmd, m.waitForEvent())
	case tagFinishedMsg:
		m.summary = msg.summary
		m.finished = true
		m.cancel()
		return m, tea.Quit
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *TagProgressModel) apply(ev runner.Event) tea.Cmd {
	switch ev.Kind {
	case runner.EventStarted:
		m.active[ev.Index] = filepath.Base(ev.Path)
	case runner.EventPath:
		m.active[ev.Index] = filepath.Base(ev.NewPath)
	case runner.EventStatus:
		m.lines = append(m.lines, logLine{file: filepath.Base(ev.Path), message: ev.Message, severity: ev.Severity})
		if len(m.lines) > maxLogLines {
			m.lines = m.lines[len(m.lines)-maxLogLines:]
		}
	case runner.EventDone:
		delete(m.active, ev.Index)
		m.processed++
		if ev.Result.OK() {
			m.succeeded++
		} else {
			m.failed++
		}
		if len(m.jobs) > 0 {
			return m.progress.SetPercent(float64(m.processed) / float64(len(m.jobs)))
		}
	}
	return nil
}

// View renders the progress UI.
func (m *TagProgressModel) View() string {
	sections := []string{
		m.theme.HeaderStyle().Width(m.width).Render("Tagging Media Files"),
		m.progress.View(),
		fmt.Sprintf("%s Files processed: %d/%d  Succeeded: %d  Failed: %d",
			m.theme.Icon("stats"), m.processed, len(m.jobs), m.succeeded, m.failed),
	}

	inner := max(m.width-4, 10)
	if len(m.active) > 0 {
		idx := make([]int, 0, len(m.active))
		for i := range m.active {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		rows := make([]string, 0, len(idx))
		for _, i := range idx {
			rows = append(rows, truncate(m.theme.Icon("working")+" "+m.active[i], inner))
		}
		sections = append(sections, m.panel(strings.Join(rows, "\n")))
	}

	if len(m.lines) > 0 {
		rows := make([]string, 0, len(m.lines))
		for _, l := range m.lines {
			icon, tone := m.severityLook(l.severity)
			text := truncate(fmt.Sprintf("%s %s: %s", icon, l.file, l.message), inner)
			rows = append(rows, m.theme.TextStyle(tone).Render(text))
		}
		sections = append(sections, m.panel(strings.Join(rows, "\n")))
	}

	status := "Working... press esc to stop"
	if m.finished {
		status = "Done"
	}
	sections = append(sections, m.theme.StatusBarStyle().Width(m.width).Render(status))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *TagProgressModel) panel(body string) string {
	panel := m.theme.PanelStyle()
	return panel.Width(max(m.width-panel.GetHorizontalFrameSize(), 0)).Render(body)
}

func (m *TagProgressModel) severityLook(s core.Severity) (string, theme.Tone) {
	switch s {
	case core.Error:
		return m.theme.Icon("error"), theme.ToneError
	case core.Warning:
		return m.theme.Icon("warning"), theme.ToneWarning
	default:
		return m.theme.Icon("success"), theme.ToneSuccess
	}
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// Summary returns the run summary. It is complete only when Finished is true.
func (m *TagProgressModel) Summary() runner.Summary { return m.summary }

// Finished reports whether every job ran to completion.
func (m *TagProgressModel) Finished() bool { return m.finished }

// Cancelled reports whether the user stopped the run.
func (m *TagProgressModel) Cancelled() bool { return m.cancelled }

// Wait blocks until the background run has returned and yields its summary.
// Use it after the program exits early to let in-flight files finish.
func (m *TagProgressModel) Wait() runner.Summary {
	if m.finished || !m.begun {
		return m.summary
	}
	for range m.events {
	}
	<-m.done
	m.summary = m.result
	m.finished = true
	return m.summary
}
