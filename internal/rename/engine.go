package rename

import "github.com/Digital-Shane/autotag/internal/config"

// Fields are the values a rename pattern can reference.
type Fields struct {
	Series  string
	Title   string
	Season  int
	Episode int
	Year    int
}

// Engine renders the pattern of one mode. The pattern is compiled once.
type Engine struct {
	mode    config.Mode
	pattern Pattern
}

// NewEngine compiles the pattern selected by mode.
func NewEngine(mode config.Mode, pattern string) *Engine {
	return &Engine{mode: mode, pattern: Compile(pattern)}
}

// Mode returns the mode the engine renders for.
func (e *Engine) Mode() config.Mode { return e.mode }

// Name returns the candidate file name (no extension) for f.
func (e *Engine) Name(f Fields) string {
	if e.mode == config.ModeMovie {
		return MovieName(e.pattern, f.Title, f.Year)
	}
	return TVName(e.pattern, f.Series, f.Season, f.Episode, f.Title)
}

// TVName renders p with %1 series, %2 season, %3 episode and %4 title.
func TVName(p Pattern, series string, season, episode int, title string) string {
	return p.Render(func(ph Placeholder) (string, bool) {
		switch ph.Index {
		case 1:
			return series, true
		case 2:
			return FormatNumber(season, ph.Format), true
		case 3:
			return FormatNumber(episode, ph.Format), true
		case 4:
			return title, true
		default:
			return "", false
		}
	})
}

// MovieName renders p with %1 title and %2 year.
func MovieName(p Pattern, title string, year int) string {
	return p.Render(func(ph Placeholder) (string, bool) {
		switch ph.Index {
		case 1:
			return title, true
		case 2:
			return FormatNumber(year, ph.Format), true
		default:
			return "", false
		}
	})
}
