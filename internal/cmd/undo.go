package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/autotag/internal/log"
	"github.com/Digital-Shane/autotag/internal/tui/theme"
	"github.com/Digital-Shane/autotag/internal/tui/undo"
)

func newUndoCmd() *cobra.Command {
	var list, latest bool
	c := &cobra.Command{
		Use:   "undo [session]",
		Short: "Undo the renames of a previous tag session",
		Long: `Rename files back to the names they had before a tag session.

Without arguments an interactive session picker is shown. Pass a session id (or
a prefix of one) or --latest to undo directly; --list prints the recorded
sessions. Tags written into files are not reverted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			th := theme.Default()
			switch {
			case list:
				return listSessions(out, th)
			case len(args) == 1:
				return runUndo(out, th, args[0])
			case latest:
				return runUndo(out, th, "")
			default:
				return runUndoPicker(out, th)
			}
		},
	}
	c.Flags().BoolVarP(&list, "list", "l", false, "List recorded sessions instead of undoing one")
	c.Flags().BoolVar(&latest, "latest", false, "Undo the most recent session without the picker")
	return c
}

func runUndoPicker(out io.Writer, th theme.Theme) error {
	summaries, err := log.GetSessionSummaries()
	if err != nil {
		return fmt.Errorf("failed to read log sessions: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No operation sessions found to undo.")
		return nil
	}

	model := undo.NewUndoModel(undo.NewSessionTree(summaries), undo.WithTheme(th))
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func listSessions(out io.Writer, th theme.Theme) error {
	summaries, err := log.GetSessionSummaries()
	if err != nil {
		return fmt.Errorf("failed to read log sessions: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No operation sessions found.")
		return nil
	}

	muted := th.TextStyle(theme.ToneMuted)
	for _, summary := range summaries {
		meta := summary.Session.Metadata
		fmt.Fprintf(out, "%s %s  %s (%d ops, %d failed)\n",
			summary.Icon,
			meta.SessionID,
			muted.Render(summary.RelativeTime),
			meta.TotalOps,
			meta.FailedOps)
	}
	return nil
}

func runUndo(out io.Writer, th theme.Theme, prefix string) error {
	session, path, err := log.FindSession(prefix)
	if err != nil {
		return err
	}

	successful, failed, errs := log.UndoSession(session)
	for _, err := range errs {
		fmt.Fprintln(out, th.TextStyle(theme.ToneError).Render(fmt.Sprintf("%s %v", th.Icon("error"), err)))
	}

	tone := theme.ToneSuccess
	if failed > 0 {
		tone = theme.ToneWarning
	}
	fmt.Fprintln(out, th.TextStyle(tone).Render(fmt.Sprintf("%s Undid %d rename(s) from session %s, %d failed",
		th.Icon("undo"), successful, session.Metadata.SessionID, failed)))

	if failed > 0 {
		return fmt.Errorf("%d rename(s) could not be undone", failed)
	}

	// A fully reverted session cannot be undone again.
	return log.DiscardSession(path)
}
