package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/autotag/internal/config"
	"github.com/Digital-Shane/autotag/internal/container"
	"github.com/Digital-Shane/autotag/internal/cover"
	"github.com/Digital-Shane/autotag/internal/log"
	"github.com/Digital-Shane/autotag/internal/media"
	"github.com/Digital-Shane/autotag/internal/rename"
)

// ErrNoMetadata is reported for files processed without a metadata record.
var ErrNoMetadata = errors.New("no metadata for file")

// CoverSource supplies cover art bytes by cover file name.
type CoverSource interface {
	Fetch(ctx context.Context, filename, url string) ([]byte, error)
}

// Writer applies metadata records to files: it tags them, then renames them.
// A Writer is safe for concurrent use when its Opener and CoverSource are.
type Writer struct {
	cfg     config.Config
	opener  container.Opener
	covers  CoverSource
	charset Charset
	engine  *rename.Engine
}

// NewWriter validates cfg and prepares the per-run state shared by every
// file: the invalid character set and the compiled rename pattern. A nil
// covers uses an in-memory cover cache.
func NewWriter(cfg *config.Config, opener container.Opener, covers CoverSource) (*Writer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opener == nil {
		return nil, errors.New("writer requires a container opener")
	}
	if covers == nil {
		covers = cover.New(cover.Options{Client: cover.NewClient(cfg.HTTPTimeout())})
	}

	return &Writer{
		cfg:     *cfg,
		opener:  opener,
		covers:  covers,
		charset: NewCharset(cfg.WindowsSafe),
		engine:  rename.NewEngine(cfg.Mode, cfg.RenamePattern()),
	}, nil
}

// Write processes one file and reports whether every enabled step succeeded.
func (w *Writer) Write(ctx context.Context, path string, rec *media.Record, r Reporter) bool {
	return w.Process(ctx, path, rec, r).OK()
}

// Process tags and renames one file according to the configuration. Every
// outcome is delivered through r; failures are also returned in Result.Err.
func (w *Writer) Process(ctx context.Context, path string, rec *media.Record, r Reporter) Result {
	if r == nil {
		r = discard
	}
	res := Result{Path: path}

	if rec == nil {
		r.SetStatus("Error: No metadata available for file", Error)
		res.Err = ErrNoMetadata
		return res
	}

	var errs []error
	if w.cfg.TagFiles {
		saved, err := w.writeTags(ctx, path, rec, r)
		res.Tagged = saved
		log.LogTag(path, err == nil, err)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if w.cfg.RenameFiles {
		newPath, renamed, err := w.renameFile(path, rec, r)
		res.Path = newPath
		res.Renamed = renamed
		if err != nil {
			errs = append(errs, err)
		}
	}

	res.Err = errors.Join(errs...)
	return res
}

// TargetName returns the sanitized file name, extension included, that path
// would be renamed to.
func (w *Writer) TargetName(path string, rec *media.Record) string {
	ext := filepath.Ext(path)
	current := strings.TrimSuffix(filepath.Base(path), ext)
	clean, _ := sanitizeFilename(w.candidateName(rec), current, w.charset)
	return clean + ext
}

func (w *Writer) candidateName(rec *media.Record) string {
	return w.engine.Name(rename.Fields{
		Series:  rec.SeriesName,
		Title:   rec.Title,
		Season:  rec.Season,
		Episode: rec.Episode,
		Year:    rec.Year(),
	})
}

// renameFile moves path to the name generated from rec, in the same
// directory and with the same extension. Tags already written are kept
// whatever the outcome.
func (w *Writer) renameFile(path string, rec *media.Record, r Reporter) (string, bool, error) {
	ext := filepath.Ext(path)
	current := strings.TrimSuffix(filepath.Base(path), ext)

	clean, warn := sanitizeFilename(w.candidateName(rec), current, w.charset)
	if warn {
		r.SetStatus("Warning: Invalid characters in file name, automatically removing", Warning)
	}

	oldPath := filepath.Clean(path)
	newPath := filepath.Join(filepath.Dir(oldPath), clean+ext)
	if newPath == oldPath {
		return path, false, nil
	}

	if err := moveFile(oldPath, newPath); err != nil {
		log.LogRename(oldPath, newPath, false, err)
		if errors.Is(err, ErrRenameCollision) {
			r.SetStatus("Error: Could not rename - file already exists", Error)
			return path, false, fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
		}

		msg := "Error: Failed to rename file"
		if w.cfg.Verbose {
			msg = fmt.Sprintf("%s (%s: %v)", msg, errorKind(err), err)
		}
		r.SetStatus(msg, Error)
		return path, false, fmt.Errorf("%w: %w", ErrRenameIO, err)
	}

	log.LogRename(oldPath, newPath, true, nil)
	r.SetPath(newPath)
	r.SetStatus(fmt.Sprintf("Successfully renamed file to '%s'", filepath.Base(newPath)), Information)
	return newPath, true, nil
}
