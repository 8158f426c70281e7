package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Digital-Shane/autotag/internal/container"
	"github.com/Digital-Shane/autotag/internal/cover"
	"github.com/Digital-Shane/autotag/internal/media"
)

// coverPictureName is the file name every embedded cover is stored under.
const coverPictureName = "cover.jpg"

// writeTags maps rec onto the file at path and saves it. saved is true when
// the container accepted the write, even if cover art could not be added.
func (w *Writer) writeTags(ctx context.Context, path string, rec *media.Record, r Reporter) (saved bool, err error) {
	c, err := w.opener.Open(ctx, path)
	if err != nil {
		w.reportTagFailure(r, err, nil)
		return false, fmt.Errorf("%w: %w", ErrTagWrite, err)
	}
	defer c.Close()

	applyRecord(c, rec, w.cfg.ExtendedTagging)

	var coverErr error
	if w.cfg.AddCoverArt {
		coverErr = w.applyCover(ctx, c, rec, r)
	}

	if err := c.Save(); err != nil {
		w.reportTagFailure(r, err, c.CorruptionReasons())
		return false, errors.Join(fmt.Errorf("%w: %w", ErrTagWrite, err), coverErr)
	}

	if coverErr == nil {
		r.SetStatus(fmt.Sprintf("Successfully tagged file as %s", rec), Information)
	}
	return true, coverErr
}

// applyRecord stages every field of rec except cover art.
func applyRecord(c container.Container, rec *media.Record, extended bool) {
	c.SetTitle(rec.Title)
	c.SetDescription(rec.Overview)

	if len(rec.Genres) > 0 {
		c.SetGenres(rec.Genres)
	}

	if extended && c.Capabilities().Extended {
		if rec.FileType == media.TV && rec.CatalogID != nil {
			c.SetCustom("TMDB", fmt.Sprintf("tv/%d", *rec.CatalogID))
		}
		c.SetConductor(rec.Director)
		c.SetPerformers(rec.Actors)
		c.SetPerformerRoles(rec.Characters)
	}

	if rec.FileType == media.TV {
		c.SetAlbum(rec.SeriesName)
		c.SetDisc(toUint(rec.Season))
		c.SetTrack(toUint(rec.Episode))
		c.SetTrackCount(toUint(rec.SeasonEpisodes))
	} else {
		c.SetYear(toUint(rec.Year()))
	}
}

// applyCover stages the record's cover art. A record without a cover file
// name counts as a failure whenever cover art is enabled.
func (w *Writer) applyCover(ctx context.Context, c container.Container, rec *media.Record, r Reporter) error {
	if rec.CoverFilename == "" {
		return fmt.Errorf("%w: no cover art available", ErrCoverArt)
	}

	data, err := w.covers.Fetch(ctx, rec.CoverFilename, rec.CoverURL)
	if err != nil {
		msg := "Error: failed to download cover art"
		if w.cfg.Verbose {
			var fe *cover.FetchError
			if errors.As(err, &fe) {
				msg = fmt.Sprintf("%s (%d:%s)", msg, fe.StatusCode, fe.URL)
			} else {
				msg = fmt.Sprintf("%s (%s: %v)", msg, errorKind(err), err)
			}
		}
		r.SetStatus(msg, Error)
		return fmt.Errorf("%w: %w", ErrCoverArt, err)
	}

	c.SetPictures([]container.Picture{{Filename: coverPictureName, Data: data}})
	return nil
}

func (w *Writer) reportTagFailure(r Reporter, err error, reasons []string) {
	if !w.cfg.Verbose {
		r.SetStatus("Error: Failed to write tags to file", Error)
		return
	}
	if len(reasons) > 0 {
		r.SetStatus(fmt.Sprintf("Error: Failed to write tags to file (%s: %v; CorruptionReasons: %s)",
			errorKind(err), err, strings.Join(reasons, ", ")), Error)
		return
	}
	r.SetStatus(fmt.Sprintf("Error: Failed to write tags to file (%s: %v)", errorKind(err), err), Error)
}

// errorKind names the type of the innermost error in err's chain.
func errorKind(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

func toUint(n int) uint {
	if n < 0 {
		return 0
	}
	return uint(n)
}
