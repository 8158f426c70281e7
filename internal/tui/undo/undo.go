package undo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/treeview"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Digital-Shane/autotag/internal/log"
	"github.com/Digital-Shane/autotag/internal/tui/theme"
)

var (
	undoSessionFn    = log.UndoSession
	discardSessionFn = log.DiscardSession
)

const recentOps = 5

// UndoCompleteMsg is emitted when an undo operation completes.
type UndoCompleteMsg struct{ successCount, errorCount int }

func (u UndoCompleteMsg) SuccessCount() int { return u.successCount }

func (u UndoCompleteMsg) ErrorCount() int { return u.errorCount }

// UndoModel lists recorded tag sessions and reverts the renames of the one
// the user confirms.
type UndoModel struct {
	*treeview.TuiTreeModel[log.SessionSummary]
	confirmingUndo bool
	undoInProgress bool
	undoComplete   bool
	undoSuccess    int
	undoFailed     int
	width          int
	height         int
	splitRatio     float64
	theme          theme.Theme

	detailsViewport *viewport.Model
	detailsFocused  bool
}

// Option configures an UndoModel during construction.
type Option func(*UndoModel)

// WithTheme overrides the default theme for the undo TUI.
func WithTheme(th theme.Theme) Option {
	return func(m *UndoModel) {
		m.theme = th
	}
}

// NewSessionTree builds the session list shown by the undo TUI with the
// newest session focused.
func NewSessionTree(summaries []log.SessionSummary) *treeview.Tree[log.SessionSummary] {
	nodes := make([]*treeview.Node[log.SessionSummary], 0, len(summaries))
	for _, summary := range summaries {
		meta := summary.Session.Metadata
		name := fmt.Sprintf("%s %s (%d ops)", summary.Icon, summary.RelativeTime, meta.TotalOps)
		nodes = append(nodes, treeview.NewNode(meta.SessionID, name, summary))
	}
	tree := treeview.NewTree(nodes)
	if len(nodes) > 0 {
		_, _ = tree.SetFocusedID(context.Background(), nodes[0].ID())
	}
	return tree
}

// NewUndoModel creates a new undo selection model
func NewUndoModel(tree *treeview.Tree[log.SessionSummary], opts ...Option) *UndoModel {
	m := &UndoModel{
		width:      80,
		height:     24,
		splitRatio: 0.5,
	}

	initOpts := append([]Option{WithTheme(theme.Default())}, opts...)
	for _, opt := range initOpts {
		opt(m)
	}

	keyMap := treeview.DefaultKeyMap()
	keyMap.SearchStart = []string{}
	keyMap.Reset = []string{}

	treeWidth := m.treeWidth()
	m.TuiTreeModel = treeview.NewTuiTreeModel(tree,
		treeview.WithTuiWidth[log.SessionSummary](treeWidth),
		treeview.WithTuiHeight[log.SessionSummary](m.height-4),
		treeview.WithTuiAllowResize[log.SessionSummary](true),
		treeview.WithTuiDisableNavBar[log.SessionSummary](true),
		treeview.WithTuiKeyMap[log.SessionSummary](keyMap),
	)

	vp := viewport.New(m.width-treeWidth-6, m.height-8)
	vp.Style = m.theme.PanelStyle().BorderStyle(lipgloss.Border{})
	m.detailsViewport = &vp

	return m
}

func (m *UndoModel) treeWidth() int {
	return int(float64(m.width)*m.splitRatio) - 2
}

func (m *UndoModel) Init() tea.Cmd {
	return nil
}

func (m *UndoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := m.treeWidth()
		treeModel, cmd := m.TuiTreeModel.Update(tea.WindowSizeMsg{Width: treeWidth, Height: m.height - 4})
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[log.SessionSummary])

		// header, borders and instructions
		m.detailsViewport.Width = m.width - treeWidth - 6
		m.detailsViewport.Height = m.height - 8
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit

		case "tab":
			m.detailsFocused = !m.detailsFocused
			return m, nil

		case "up":
			if m.detailsFocused {
				m.detailsViewport.ScrollUp(1)
				return m, nil
			}

		case "down":
			if m.detailsFocused {
				m.detailsViewport.ScrollDown(1)
				return m, nil
			}

		case "pgup":
			if m.detailsFocused {
				m.detailsViewport.HalfPageUp()
				return m, nil
			}

		case "pgdown":
			if m.detailsFocused {
				m.detailsViewport.HalfPageDown()
				return m, nil
			}

		case "enter":
			if m.confirmingUndo {
				if focused := m.TuiTreeModel.Tree.GetFocusedNode(); focused != nil {
					m.undoInProgress = true
					m.confirmingUndo = false
					return m, m.performUndo(*focused.Data())
				}
			} else if !m.undoInProgress && !m.undoComplete {
				m.confirmingUndo = true
			}
			return m, nil

		case "n", "N":
			m.confirmingUndo = false
			return m, nil
		}

	case UndoCompleteMsg:
		m.undoInProgress = false
		m.undoComplete = true
		m.undoSuccess = msg.successCount
		m.undoFailed = msg.errorCount
		return m, nil
	}

	if !m.confirmingUndo && !m.undoInProgress && !m.detailsFocused {
		treeModel, cmd := m.TuiTreeModel.Update(msg)
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[log.SessionSummary])
		return m, cmd
	}

	return m, nil
}

func (m *UndoModel) View() string {
	var b strings.Builder

	b.WriteString(m.theme.HeaderStyle().Width(m.width).Render("autotag Undo Sessions"))
	b.WriteByte('\n')

	switch {
	case m.undoComplete:
		resultText := fmt.Sprintf("Undo completed: %d renames reversed", m.undoSuccess)
		if m.undoFailed > 0 {
			resultText = fmt.Sprintf("Undo completed: %d success, %d failed", m.undoSuccess, m.undoFailed)
		}
		b.WriteString(m.theme.StatusBarStyle().Width(m.width).Render(resultText))
		b.WriteByte('\n')
		b.WriteString(m.mutedCentered("Press 'Ctrl+C' or 'esc' to exit"))

	case m.undoInProgress:
		b.WriteString(m.theme.StatusBarStyle().Width(m.width).Render("Undoing renames..."))
		b.WriteByte('\n')

	case m.confirmingUndo:
		if focused := m.TuiTreeModel.Tree.GetFocusedNode(); focused != nil {
			b.WriteString(m.renderConfirmation(*focused.Data()))
		}

	default:
		b.WriteString(m.renderMainView())
	}

	return b.String()
}

func (m *UndoModel) mutedCentered(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Align(lipgloss.Center).
		Foreground(m.theme.Colors().Muted).
		Render(text)
}

func (m *UndoModel) sizedPanel(width, height int, borderColor lipgloss.Color) lipgloss.Style {
	style := m.theme.PanelStyle().BorderForeground(borderColor)
	style = style.Width(max(width-style.GetHorizontalFrameSize(), 0))
	style = style.Height(max(height-style.GetVerticalFrameSize(), 0))
	return style.Padding(0, 1)
}

// renderMainView renders the session list beside the selected session's details.
func (m *UndoModel) renderMainView() string {
	leftWidth := int(float64(m.width) * m.splitRatio)
	rightWidth := m.width - leftWidth

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSessionList(leftWidth, m.height-3),
		m.renderSessionPreview(rightWidth, m.height-3),
	)

	focusInfo := "Tab: Details Focus | "
	if m.detailsFocused {
		focusInfo = "Tab: List Focus | "
	}
	instruction := lipgloss.NewStyle().
		Italic(true).
		Width(m.width).
		Align(lipgloss.Center).
		Foreground(m.theme.Colors().Muted).
		Render(focusInfo + "↑↓ Navigate | PgUp/PgDn: Page | Enter: Undo | Esc/Ctrl+C: Quit")

	return content + "\n" + instruction
}

func (m *UndoModel) panelTitle(text string, width int, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(color).
		Width(max(width-4, 0)).
		Align(lipgloss.Center).
		Render(text)
}

func (m *UndoModel) renderSessionList(width, height int) string {
	colors := m.theme.Colors()
	title := m.panelTitle("Sessions", width, colors.Primary)
	return m.sizedPanel(width, height, colors.Primary).Render(title + "\n" + m.TuiTreeModel.View())
}

func (m *UndoModel) renderSessionPreview(width, height int) string {
	colors := m.theme.Colors()

	if focused := m.TuiTreeModel.Tree.GetFocusedNode(); focused != nil {
		m.detailsViewport.SetContent(m.formatSessionDetails(*focused.Data(), m.detailsViewport.Width))
	} else {
		m.detailsViewport.SetContent(lipgloss.NewStyle().
			Italic(true).
			Foreground(colors.Muted).
			Render("Select a session to view details"))
	}

	scrollIndicator := ""
	if m.detailsViewport.TotalLineCount() > m.detailsViewport.Height {
		scrollIndicator = " [Tab to scroll]"
		if m.detailsFocused {
			scrollIndicator = " [Use Tab+↑↓]"
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.panelTitle("Session Details"+scrollIndicator, width, colors.Accent),
		"",
		m.detailsViewport.View(),
	)
	return m.sizedPanel(width, height, colors.Accent).Render(body)
}

// formatSessionDetails describes a session: when it ran, on which manifest and
// the most recent file operations.
func (m *UndoModel) formatSessionDetails(summary log.SessionSummary, width int) string {
	var b strings.Builder
	session := summary.Session
	colors := m.theme.Colors()

	label := lipgloss.NewStyle().Bold(true).Foreground(colors.Accent)
	value := lipgloss.NewStyle().Foreground(colors.Primary)
	indent := lipgloss.NewStyle().MarginLeft(2)

	b.WriteString(label.Render("Command: "))
	b.WriteString(value.Render(strings.Join(session.Metadata.CommandArgs, " ")))
	b.WriteString("\n\n")

	b.WriteString(label.Render("Time: "))
	b.WriteString(value.Render(summary.RelativeTime))
	b.WriteString("\n")
	b.WriteString(label.Render("Date: "))
	b.WriteString(value.Render(session.Metadata.Timestamp.Format("2006-01-02 15:04:05")))
	b.WriteString("\n\n")

	b.WriteString(label.Render("Directory: "))
	b.WriteString(value.Render(shortenLeft(session.Metadata.WorkingDir, width-12)))
	b.WriteString("\n\n")

	tags, renames := 0, 0
	for _, op := range session.Operations {
		if !op.Success {
			continue
		}
		switch op.Type {
		case log.OpTag:
			tags++
		case log.OpRename:
			renames++
		}
	}
	b.WriteString(label.Render("Operations:"))
	b.WriteString("\n")
	stats := fmt.Sprintf("Tagged: %d\nRenamed: %d\nFailed: %d", tags, renames, session.Metadata.FailedOps)
	b.WriteString(indent.Render(value.Render(stats)))
	b.WriteString("\n\n")

	if n := len(session.Operations); n > 0 {
		b.WriteString(label.Render("Recent Operations:"))
		b.WriteString("\n")
		for _, op := range session.Operations[max(n-recentOps, 0):] {
			b.WriteString(indent.Render(fmt.Sprintf("%s %s", m.operationIcon(op), formatOperation(op, width-6))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(label.Render("Session ID: "))
	b.WriteString(lipgloss.NewStyle().Foreground(colors.Muted).Italic(true).Render(session.Metadata.SessionID))

	return b.String()
}

func (m *UndoModel) operationIcon(op log.OperationLog) string {
	if !op.Success {
		return m.theme.Icon("error")
	}
	switch op.Type {
	case log.OpTag:
		return m.theme.Icon("tag")
	case log.OpRename:
		return m.theme.Icon("rename")
	default:
		return m.theme.Icon("info")
	}
}

// formatOperation renders one operation in at most maxWidth bytes.
func formatOperation(op log.OperationLog, maxWidth int) string {
	var text string
	switch op.Type {
	case log.OpRename:
		text = fmt.Sprintf("%s → %s", filepath.Base(op.SourcePath), filepath.Base(op.DestPath))
	case log.OpTag:
		text = "Tagged: " + filepath.Base(op.SourcePath)
	default:
		text = string(op.Type)
	}

	if maxWidth > 3 && len(text) > maxWidth {
		text = text[:maxWidth-3] + "..."
	}
	if !op.Success && op.Error != "" {
		text += " (failed)"
	}
	return text
}

func shortenLeft(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return "..." + s[len(s)-(width-3):]
}

func (m *UndoModel) renderConfirmation(summary log.SessionSummary) string {
	session := summary.Session
	colors := m.theme.Colors()

	box := m.theme.PanelStyle().
		BorderForeground(colors.Accent).
		Padding(1, 2).
		Width(60).
		Align(lipgloss.Center).
		Background(colors.Background)

	text := fmt.Sprintf(
		"Confirm Undo\n\n"+
			"Session: %s\n"+
			"Time: %s\n"+
			"Operations: %d (Success: %d, Failed: %d)\n"+
			"Directory: %s\n\n"+
			"Every successful rename will be reversed.\n"+
			"Tags written into files are kept.\n\n"+
			"Press ENTER to confirm or 'n' to cancel",
		session.Metadata.SessionID,
		summary.RelativeTime,
		session.Metadata.TotalOps,
		session.Metadata.SuccessfulOps,
		session.Metadata.FailedOps,
		session.Metadata.WorkingDir)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box.Render(text))
}

// performUndo reverts the session and drops its log when nothing failed.
func (m *UndoModel) performUndo(summary log.SessionSummary) tea.Cmd {
	return func() tea.Msg {
		successful, failed, _ := undoSessionFn(summary.Session)
		if failed == 0 && summary.FilePath != "" {
			if err := discardSessionFn(summary.FilePath); err != nil {
				failed++
			}
		}
		return UndoCompleteMsg{successCount: successful, errorCount: failed}
	}
}
