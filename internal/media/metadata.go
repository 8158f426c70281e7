package media

import (
	"fmt"
	"strings"
	"time"
)

// FileType classifies the content a Record describes.
type FileType int

const (
	TV    FileType = iota // Episode of a series
	Movie                 // Feature film or any non-episodic content
)

// String returns the manifest spelling of the type.
func (t FileType) String() string {
	if t == TV {
		return "tv"
	}
	return "movie"
}

// ParseFileType converts the manifest spelling into a FileType.
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tv", "episode", "series", "show":
		return TV, nil
	case "movie", "film":
		return Movie, nil
	default:
		return Movie, fmt.Errorf("unknown file type %q", s)
	}
}

// Record is the already-resolved metadata for one media file.
//
// Season, Episode and SeasonEpisodes are only meaningful for TV records, and
// only the year of Date is written for movies. CoverFilename and CoverURL are
// expected to be both set or both empty; CoverFilename doubles as the cover
// cache key.
type Record struct {
	FileType FileType

	Title      string
	Overview   string
	SeriesName string
	Director   string

	Genres     []string
	Actors     []string
	Characters []string

	Season         int
	Episode        int
	SeasonEpisodes int

	Date      time.Time
	CatalogID *int

	CoverFilename string
	CoverURL      string
}

// Year returns the year component of Date, or 0 when the date is unknown.
func (r *Record) Year() int {
	if r.Date.IsZero() {
		return 0
	}
	return r.Date.Year()
}

// String describes the record in status messages.
func (r *Record) String() string {
	if r == nil {
		return ""
	}
	if r.FileType == TV {
		return fmt.Sprintf("%s - S%02dE%02d - %s", r.SeriesName, r.Season, r.Episode, r.Title)
	}
	if year := r.Year(); year > 0 {
		return fmt.Sprintf("%s (%d)", r.Title, year)
	}
	return r.Title
}
