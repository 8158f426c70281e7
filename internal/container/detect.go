package container

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/vansante/go-ffprobe.v2"
)

const probeTimeout = 10 * time.Second

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Detection is the outcome of identifying a file's container.
type Detection struct {
	Format Format
	// Warnings collects probe problems; they surface as corruption reasons.
	Warnings []string
}

// Detector identifies container formats with ffprobe, falling back to the
// file extension when ffprobe is unavailable or cannot read the file.
type Detector struct {
	probe probeFunc
}

// NewDetector returns a Detector that probes with ffprobe when it is on PATH.
func NewDetector() *Detector {
	d := &Detector{}
	if _, err := exec.LookPath("ffprobe"); err == nil {
		d.probe = ffprobe.ProbeURL
	}
	return d
}

// Detect returns the container format of path. An empty Format means the file
// cannot be tagged.
func (d *Detector) Detect(ctx context.Context, path string) Detection {
	var det Detection

	if d != nil && d.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		data, err := d.probe(pctx, path)
		cancel()
		if err != nil {
			det.Warnings = append(det.Warnings, "ffprobe: "+err.Error())
		} else if data != nil && data.Format != nil {
			if f := formatFromProbe(data.Format.FormatName); f != "" {
				det.Format = f
				return det
			}
		}
	}

	det.Format = FormatFromExtension(path)
	return det
}

// formatFromProbe maps ffprobe's comma separated format_name to a Format.
func formatFromProbe(name string) Format {
	for _, part := range strings.Split(strings.ToLower(name), ",") {
		switch strings.TrimSpace(part) {
		case "matroska", "webm":
			return FormatMatroska
		case "mp3":
			return FormatMP3
		case "mov", "mp4", "m4a", "3gp", "3g2", "mj2":
			return FormatMP4
		case "flac", "ogg", "wav", "aiff", "asf", "ape", "wv", "dsf":
			return FormatOther
		}
	}
	return ""
}

// extFormats maps lowercase extensions to container formats.
var extFormats = map[string]Format{
	".mkv":  FormatMatroska,
	".mka":  FormatMatroska,
	".mks":  FormatMatroska,
	".webm": FormatMatroska,

	".mp3": FormatMP3,

	".mp4": FormatMP4,
	".m4v": FormatMP4,
	".m4a": FormatMP4,
	".m4b": FormatMP4,
	".mov": FormatMP4,

	".flac": FormatOther,
	".ogg":  FormatOther,
	".oga":  FormatOther,
	".opus": FormatOther,
	".wav":  FormatOther,
	".aif":  FormatOther,
	".aiff": FormatOther,
	".wma":  FormatOther,
	".wmv":  FormatOther,
	".asf":  FormatOther,
	".ape":  FormatOther,
	".wv":   FormatOther,
}

// FormatFromExtension guesses the container format from the file name alone.
func FormatFromExtension(path string) Format {
	return extFormats[strings.ToLower(filepath.Ext(path))]
}
