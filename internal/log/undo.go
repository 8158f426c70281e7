package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotUndoable marks operations whose effects cannot be reverted.
var ErrNotUndoable = errors.New("operation cannot be undone")

type UndoResult struct {
	Operation OperationLog
	Success   bool
	Error     error
}

func UndoOperation(op OperationLog) UndoResult {
	result := UndoResult{
		Operation: op,
		Success:   false,
	}

	switch op.Type {
	case OpRename:
		// Reverse a rename operation: rename back to original
		if op.DestPath == "" {
			result.Error = fmt.Errorf("cannot undo rename: destination path missing")
			return result
		}

		// Check if the destination file exists (the renamed file)
		if _, err := os.Stat(op.DestPath); os.IsNotExist(err) {
			result.Error = fmt.Errorf("cannot undo rename: file %s not found", op.DestPath)
			return result
		}

		// Check if reverting would overwrite an existing file
		if _, err := os.Lstat(op.SourcePath); err == nil {
			result.Error = fmt.Errorf("cannot undo rename: original path %s already exists", op.SourcePath)
			return result
		}

		if err := os.Rename(op.DestPath, op.SourcePath); err != nil {
			result.Error = fmt.Errorf("failed to rename %s back to %s: %w", op.DestPath, op.SourcePath, err)
			return result
		}

		result.Success = true

	case OpTag:
		// Previous tag values are not recorded
		result.Error = fmt.Errorf("tags written to %s: %w", op.SourcePath, ErrNotUndoable)

	default:
		result.Error = fmt.Errorf("unknown operation type: %s", op.Type)
	}

	return result
}

// UndoSession reverts the successful renames of session, newest first. Tag
// writes are skipped.
func UndoSession(session *LogSession) (successful int, failed int, errs []error) {
	for i := len(session.Operations) - 1; i >= 0; i-- {
		op := session.Operations[i]

		// Only undo successful operations
		if !op.Success || op.Type == OpTag {
			continue
		}

		result := UndoOperation(op)
		if result.Success {
			successful++
		} else {
			failed++
			if result.Error != nil {
				errs = append(errs, result.Error)
			}
		}
	}

	return successful, failed, errs
}

func FindLatestSession() (*LogSession, string, error) {
	files, err := sessionFiles()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sessions: %w", err)
	}

	for _, file := range files {
		session, err := ReadSession(file)
		if err != nil {
			continue
		}
		return session, file, nil
	}

	return nil, "", fmt.Errorf("no sessions found")
}

// FindSession returns the session whose id starts with prefix.
func FindSession(prefix string) (*LogSession, string, error) {
	if prefix == "" {
		return FindLatestSession()
	}

	files, err := sessionFiles()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sessions: %w", err)
	}

	for _, file := range files {
		if !strings.HasPrefix(filepath.Base(file), prefix) {
			continue
		}
		session, err := ReadSession(file)
		if err != nil {
			return nil, "", err
		}
		return session, file, nil
	}

	return nil, "", fmt.Errorf("no session matching %q", prefix)
}

type SessionSummary struct {
	Session      *LogSession
	FilePath     string
	RelativeTime string
	Icon         string
}

func GetSessionSummaries() ([]SessionSummary, error) {
	files, err := sessionFiles()
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(files))
	for _, file := range files {
		session, err := ReadSession(file)
		if err != nil {
			continue
		}

		summary := SessionSummary{
			Session:      session,
			FilePath:     file,
			RelativeTime: formatRelativeTime(session.Metadata.Timestamp),
			Icon:         getCommandIcon(session.Metadata.CommandArgs),
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		return fmt.Sprintf("%d minute%s ago", mins, plural(mins))
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func getCommandIcon(args []string) string {
	if len(args) == 0 {
		return "❓"
	}

	switch args[0] {
	case "tag":
		return "🏷️"
	case "undo":
		return "↩️"
	default:
		return "📝"
	}
}

// DiscardSession deletes a session log whose renames have all been reverted.
func DiscardSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session log: %w", err)
	}
	return nil
}
