package core

import "errors"

// Failure categories carried in Result.Err. Use errors.Is to test for them.
var (
	ErrTagWrite        = errors.New("failed to write tags")
	ErrCoverArt        = errors.New("failed to add cover art")
	ErrRenameCollision = errors.New("rename destination already exists")
	ErrRenameIO        = errors.New("failed to rename file")
)

// Severity classifies a status message.
type Severity int

const (
	Information Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Reporter receives progress for one file. SetPath is called after a
// successful rename with the file's new location.
type Reporter interface {
	SetPath(path string)
	SetStatus(message string, severity Severity)
}

// ReporterFuncs adapts two functions to a Reporter. Nil fields are ignored.
type ReporterFuncs struct {
	Path   func(path string)
	Status func(message string, severity Severity)
}

func (r ReporterFuncs) SetPath(path string) {
	if r.Path != nil {
		r.Path(path)
	}
}

func (r ReporterFuncs) SetStatus(message string, severity Severity) {
	if r.Status != nil {
		r.Status(message, severity)
	}
}

// Result summarizes the outcome of processing one file.
type Result struct {
	// Path is the file's final location.
	Path    string
	Tagged  bool
	Renamed bool
	// Err joins every failure; nil means the file succeeded.
	Err error
}

// OK reports whether every enabled step succeeded.
func (r Result) OK() bool { return r.Err == nil }

var discard = ReporterFuncs{}
