package media

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Job pairs a media file with the metadata to write into it.
type Job struct {
	Path   string
	Record *Record
}

type manifestEntry struct {
	Path     string         `json:"path"`
	Metadata manifestRecord `json:"metadata"`
}

type manifestRecord struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Overview       string   `json:"overview"`
	SeriesName     string   `json:"series_name"`
	Director       string   `json:"director"`
	Genres         []string `json:"genres"`
	Actors         []string `json:"actors"`
	Characters     []string `json:"characters"`
	Season         int      `json:"season"`
	Episode        int      `json:"episode"`
	SeasonEpisodes int      `json:"season_episodes"`
	Date           string   `json:"date"`
	ID             *int     `json:"id"`
	CoverFilename  string   `json:"cover_filename"`
	CoverURL       string   `json:"cover_url"`
}

// LoadManifest reads a JSON manifest produced by a metadata resolver.
// Relative paths are resolved against the manifest's directory.
func LoadManifest(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest directory: %w", err)
	}
	return ParseManifest(data, base)
}

// ParseManifest decodes manifest bytes, resolving relative paths against baseDir.
func ParseManifest(data []byte, baseDir string) ([]Job, error) {
	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	jobs := make([]Job, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.Path) == "" {
			return nil, fmt.Errorf("manifest entry %d: path is empty", i)
		}
		rec, err := entry.Metadata.record()
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d (%s): %w", i, entry.Path, err)
		}

		p := entry.Path
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		jobs = append(jobs, Job{Path: filepath.Clean(p), Record: rec})
	}
	return jobs, nil
}

func (m manifestRecord) record() (*Record, error) {
	ft := Movie
	if m.Type != "" {
		var err error
		if ft, err = ParseFileType(m.Type); err != nil {
			return nil, err
		}
	}

	date, err := parseDate(m.Date)
	if err != nil {
		return nil, err
	}

	return &Record{
		FileType:       ft,
		Title:          m.Title,
		Overview:       m.Overview,
		SeriesName:     m.SeriesName,
		Director:       m.Director,
		Genres:         m.Genres,
		Actors:         m.Actors,
		Characters:     m.Characters,
		Season:         m.Season,
		Episode:        m.Episode,
		SeasonEpisodes: m.SeasonEpisodes,
		Date:           date,
		CatalogID:      m.ID,
		CoverFilename:  m.CoverFilename,
		CoverURL:       m.CoverURL,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or YYYY)", s)
}
