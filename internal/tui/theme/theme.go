package theme

import (
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

// IconSet represents a collection of icons keyed by semantic usage.
type IconSet map[string]string

// clone returns a copy of the icon set to avoid shared mutation across themes.
func (s IconSet) clone() IconSet {
	if s == nil {
		return nil
	}
	clone := make(IconSet, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Colors holds the shared color palette used by the progress UI and the
// console printer.
type Colors struct {
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// Spacing captures commonly used spacing values.
type Spacing struct {
	PanelPadding   int
	StatusHPadding int
}

// Tone selects the color used for a message or badge.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneWarning
	ToneError
	ToneMuted
)

// Theme centralizes palette, spacing and icon configuration.
type Theme struct {
	colors   Colors
	border   lipgloss.Border
	spacing  Spacing
	icons    IconSet
	fallback IconSet
}

// Option configures a Theme during construction.
type Option func(*Theme)

// WithIconSet overrides the icon set used by the theme.
func WithIconSet(set IconSet) Option {
	return func(t *Theme) {
		t.icons = set.clone()
	}
}

// WithColors overrides the base color palette.
func WithColors(colors Colors) Option {
	return func(t *Theme) {
		t.colors = colors
	}
}

// WithSpacing overrides the default spacing values.
func WithSpacing(spacing Spacing) Option {
	return func(t *Theme) {
		t.spacing = spacing
	}
}

// New constructs a Theme with optional overrides applied.
func New(opts ...Option) Theme {
	t := Theme{
		colors: Colors{
			Primary:    lipgloss.Color("#3a6b4a"),
			Accent:     lipgloss.Color("#8fc279"),
			Background: lipgloss.Color("#f8f8f8"),
			Muted:      lipgloss.Color("#9ba8c0"),
			Success:    lipgloss.Color("#5dc796"),
			Warning:    lipgloss.Color("#e5b454"),
			Error:      lipgloss.Color("#f04c56"),
		},
		border:   lipgloss.RoundedBorder(),
		spacing:  Spacing{PanelPadding: 1, StatusHPadding: 1},
		icons:    defaultIconSet(),
		fallback: asciiIcons.clone(),
	}

	for _, opt := range opts {
		opt(&t)
	}
	if t.icons == nil {
		t.icons = defaultIconSet()
	}
	return t
}

// Default returns the default Theme configuration.
func Default() Theme {
	return New()
}

// Colors exposes the theme color palette.
func (t Theme) Colors() Colors {
	return t.colors
}

// Icon returns a themed icon with ASCII fallback if unavailable.
func (t Theme) Icon(name string) string {
	if icon, ok := t.icons[name]; ok {
		return icon
	}
	if icon, ok := t.fallback[name]; ok {
		return icon
	}
	return ""
}

// IconSet returns a copy of the themed icon map.
func (t Theme) IconSet() IconSet {
	return t.icons.clone()
}

// HeaderStyle returns the style used for screen headers.
func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(t.colors.Primary).
		Foreground(t.colors.Background).
		Align(lipgloss.Center)
}

// StatusBarStyle returns the style used for footer status bars.
func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.colors.Primary).
		Foreground(t.colors.Background).
		Padding(0, t.spacing.StatusHPadding)
}

// PanelStyle returns the bordered panel container style.
func (t Theme) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(t.colors.Accent).
		Padding(0, t.spacing.PanelPadding)
}

// ToneColor maps a tone to its palette color.
func (t Theme) ToneColor(tone Tone) lipgloss.Color {
	switch tone {
	case ToneSuccess:
		return t.colors.Success
	case ToneWarning:
		return t.colors.Warning
	case ToneError:
		return t.colors.Error
	case ToneMuted:
		return t.colors.Muted
	default:
		return t.colors.Accent
	}
}

// TextStyle returns a foreground-only style for inline messages.
func (t Theme) TextStyle(tone Tone) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.ToneColor(tone))
}

// BadgeStyle returns a filled badge style for the requested tone.
func (t Theme) BadgeStyle(tone Tone) lipgloss.Style {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Background(t.ToneColor(tone)).
		Foreground(t.colors.Background)
}

// ProgressGradient returns the gradient colors for progress bars.
func (t Theme) ProgressGradient() (string, string) {
	return string(t.colors.Primary), string(t.colors.Accent)
}

// defaultIconSet chooses the best icon set for the current terminal.
func defaultIconSet() IconSet {
	if isLimitedTerminal() {
		return asciiIcons.clone()
	}
	return emojiIcons.clone()
}

// isLimitedTerminal detects environments where ASCII icons are preferable.
func isLimitedTerminal() bool {
	if os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_TTY") != "" || os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	return runtime.GOOS == "windows"
}

var emojiIcons = IconSet{
	"tv":      "📺",
	"movie":   "🎬",
	"file":    "🎥",
	"tag":     "🏷️",
	"rename":  "✏️",
	"cover":   "🖼️",
	"info":    "ℹ️",
	"success": "✅",
	"warning": "⚠️",
	"error":   "❌",
	"skipped": "⏭️",
	"working": "⏳",
	"undo":    "↩️",
	"session": "📝",
	"stats":   "📊",
}

var asciiIcons = IconSet{
	"tv":      "[TV]",
	"movie":   "[M]",
	"file":    "[F]",
	"tag":     "[T]",
	"rename":  "[R]",
	"cover":   "[C]",
	"info":    "[i]",
	"success": "[v]",
	"warning": "[!]",
	"error":   "[x]",
	"skipped": "[-]",
	"working": "[~]",
	"undo":    "[u]",
	"session": "[S]",
	"stats":   "[#]",
}
