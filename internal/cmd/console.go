package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/Digital-Shane/autotag/internal/core"
	"github.com/Digital-Shane/autotag/internal/runner"
	"github.com/Digital-Shane/autotag/internal/tui/theme"
)

// consolePrinter writes run events as styled lines for instant mode.
type consolePrinter struct {
	out   io.Writer
	theme theme.Theme
}

func newConsolePrinter(out io.Writer, th theme.Theme) consolePrinter {
	return consolePrinter{out: out, theme: th}
}

// Event prints status messages; other events are silent.
func (p consolePrinter) Event(ev runner.Event) {
	if ev.Kind != runner.EventStatus {
		return
	}
	icon, tone := severityLook(p.theme, ev.Severity)
	line := fmt.Sprintf("%s %s: %s", icon, filepath.Base(ev.Path), ev.Message)
	fmt.Fprintln(p.out, p.theme.TextStyle(tone).Render(line))
}

// Summary prints the totals of a run followed by every failed file.
func (p consolePrinter) Summary(sum runner.Summary, sessionID string) {
	badges := []string{
		p.theme.BadgeStyle(theme.ToneInfo).Render(fmt.Sprintf("%s %d files", p.theme.Icon("stats"), sum.Total)),
		p.theme.BadgeStyle(theme.ToneSuccess).Render(fmt.Sprintf("%d succeeded", sum.Succeeded)),
	}
	if sum.Failed > 0 {
		badges = append(badges, p.theme.BadgeStyle(theme.ToneError).Render(fmt.Sprintf("%d failed", sum.Failed)))
	}
	if sum.Skipped > 0 {
		badges = append(badges, p.theme.BadgeStyle(theme.ToneWarning).Render(fmt.Sprintf("%d skipped", sum.Skipped)))
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, lipgloss.JoinHorizontal(lipgloss.Top, spaced(badges)...))

	for _, res := range sum.Results {
		if res.OK() {
			continue
		}
		icon, tone := p.theme.Icon("error"), theme.ToneError
		if errors.Is(res.Err, context.Canceled) {
			icon, tone = p.theme.Icon("skipped"), theme.ToneMuted
		}
		fmt.Fprintln(p.out, p.theme.TextStyle(tone).Render(fmt.Sprintf("  %s %s: %v", icon, filepath.Base(res.Path), res.Err)))
	}

	if sessionID != "" {
		muted := p.theme.TextStyle(theme.ToneMuted)
		fmt.Fprintln(p.out, muted.Render(fmt.Sprintf("%s Session %s (run 'autotag undo %s' to revert renames)",
			p.theme.Icon("session"), sessionID, sessionID)))
	}
}

func spaced(parts []string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, part)
	}
	return out
}

func severityLook(th theme.Theme, s core.Severity) (string, theme.Tone) {
	switch s {
	case core.Error:
		return th.Icon("error"), theme.ToneError
	case core.Warning:
		return th.Icon("warning"), theme.ToneWarning
	default:
		return th.Icon("success"), theme.ToneSuccess
	}
}
