// Package container writes tag fields into media files. Each backend stages
// setter calls in memory and commits them on Save, so a failed save leaves the
// file untouched by that backend.
package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Format identifies the on-disk container family of a media file.
type Format string

const (
	FormatMP3      Format = "mp3"
	FormatMP4      Format = "mp4"
	FormatMatroska Format = "matroska"
	FormatOther    Format = "other"
)

// Capabilities describes what a container can store beyond the common fields.
type Capabilities struct {
	Format Format
	// Extended containers accept custom key/value tags plus conductor,
	// performer and performer role fields.
	Extended bool
}

// Picture is one embedded image.
type Picture struct {
	Filename string
	MimeType string
	Data     []byte
}

// Container is an open, writable tag set for one media file.
type Container interface {
	Capabilities() Capabilities

	SetTitle(string)
	SetDescription(string)
	SetGenres([]string)
	SetCustom(key, value string)
	SetConductor(string)
	SetPerformers([]string)
	SetPerformerRoles([]string)
	SetAlbum(string)
	SetDisc(uint)
	SetTrack(uint)
	SetTrackCount(uint)
	SetYear(uint)
	SetPictures([]Picture)

	// Save commits every staged field to the file.
	Save() error
	// CorruptionReasons lists structural problems noticed while opening or
	// saving the file. It is empty for healthy files.
	CorruptionReasons() []string
	Close() error
}

// Opener opens media files for tagging.
type Opener interface {
	Open(ctx context.Context, path string) (Container, error)
}

// ErrUnsupported is returned when no backend can write the file's format.
var ErrUnsupported = errors.New("unsupported container format")

// Library picks a backend per file from the detected container format.
type Library struct {
	detector    *Detector
	mkvpropedit string
}

// NewLibrary returns an Opener backed by id3v2, go-mp4tag, mkvpropedit and
// TagLib.
func NewLibrary(detector *Detector) *Library {
	if detector == nil {
		detector = NewDetector()
	}
	l := &Library{detector: detector}
	if path, err := exec.LookPath("mkvpropedit"); err == nil {
		l.mkvpropedit = path
	}
	return l
}

// Open detects the container format of path and returns its backend.
func (l *Library) Open(ctx context.Context, path string) (Container, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	det := l.detector.Detect(ctx, path)
	if det.Format == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	base := fields{
		path:    path,
		caps:    Capabilities{Format: det.Format, Extended: det.Format == FormatMatroska},
		reasons: det.Warnings,
	}

	switch det.Format {
	case FormatMP3:
		return &id3File{fields: base}, nil
	case FormatMP4:
		return &mp4File{fields: base}, nil
	case FormatMatroska:
		return &mkvFile{fields: base, ctx: ctx, tool: l.mkvpropedit}, nil
	default:
		return &taglibFile{fields: base}, nil
	}
}

// fields stages setter calls. A nil pointer means "leave the existing value".
type fields struct {
	path    string
	caps    Capabilities
	reasons []string

	title         *string
	description   *string
	genres        []string
	genresSet     bool
	custom        map[string]string
	conductor     *string
	performers    []string
	performersSet bool
	roles         []string
	rolesSet      bool
	album         *string
	disc          *uint
	track         *uint
	trackCount    *uint
	year          *uint
	pictures      []Picture
	picturesSet   bool
}

func (f *fields) Capabilities() Capabilities { return f.caps }
func (f *fields) SetTitle(v string)          { f.title = &v }
func (f *fields) SetDescription(v string)    { f.description = &v }
func (f *fields) SetConductor(v string)      { f.conductor = &v }
func (f *fields) SetAlbum(v string)          { f.album = &v }
func (f *fields) SetDisc(v uint)             { f.disc = &v }
func (f *fields) SetTrack(v uint)            { f.track = &v }
func (f *fields) SetTrackCount(v uint)       { f.trackCount = &v }
func (f *fields) SetYear(v uint)             { f.year = &v }

func (f *fields) SetGenres(v []string) {
	f.genres = append([]string(nil), v...)
	f.genresSet = true
}

func (f *fields) SetPerformers(v []string) {
	f.performers = append([]string(nil), v...)
	f.performersSet = true
}

func (f *fields) SetPerformerRoles(v []string) {
	f.roles = append([]string(nil), v...)
	f.rolesSet = true
}

func (f *fields) SetPictures(v []Picture) {
	f.pictures = append([]Picture(nil), v...)
	f.picturesSet = true
}

func (f *fields) SetCustom(key, value string) {
	if f.custom == nil {
		f.custom = make(map[string]string)
	}
	f.custom[key] = value
}

func (f *fields) CorruptionReasons() []string {
	return append([]string(nil), f.reasons...)
}

func (f *fields) Close() error { return nil }

func (f *fields) addReason(format string, args ...any) {
	f.reasons = append(f.reasons, fmt.Sprintf(format, args...))
}
