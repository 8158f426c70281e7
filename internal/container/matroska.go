package container

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
)

// ErrNoMkvpropedit is returned when a Matroska file is saved without
// mkvpropedit on PATH.
var ErrNoMkvpropedit = errors.New("mkvpropedit not found on PATH")

// Matroska tag target levels.
const (
	targetEpisode    = 50
	targetSeason     = 60
	targetCollection = 70
)

// mkvFile writes Matroska tags and the cover attachment with mkvpropedit.
type mkvFile struct {
	fields
	// ctx bounds the mkvpropedit run started by Save.
	ctx  context.Context
	tool string
}

// matroskaTags is the mkvpropedit/mkvextract tags XML document.
type matroskaTags struct {
	XMLName xml.Name      `xml:"Tags"`
	Tags    []matroskaTag `xml:"Tag"`
}

type matroskaTag struct {
	Targets matroskaTargets  `xml:"Targets"`
	Simple  []matroskaSimple `xml:"Simple"`
}

type matroskaTargets struct {
	TypeValue int `xml:"TargetTypeValue"`
}

type matroskaSimple struct {
	Name   string           `xml:"Name"`
	String string           `xml:"String"`
	Nested []matroskaSimple `xml:"Simple,omitempty"`
}

func simple(name, value string) matroskaSimple {
	return matroskaSimple{Name: name, String: value}
}

// tagsDocument builds the global tags for the staged fields. It returns nil
// when no tag field is staged.
func (f *mkvFile) tagsDocument() *matroskaTags {
	var episode, season, collection []matroskaSimple

	if f.title != nil {
		episode = append(episode, simple("TITLE", *f.title))
	}
	if f.description != nil {
		episode = append(episode, simple("DESCRIPTION", *f.description))
	}
	if f.genresSet {
		for _, g := range f.genres {
			episode = append(episode, simple("GENRE", g))
		}
	}
	if f.year != nil {
		episode = append(episode, simple("DATE_RELEASED", formatUint(*f.year)))
	}
	if f.track != nil {
		episode = append(episode, simple("PART_NUMBER", formatUint(*f.track)))
	}
	if f.conductor != nil {
		episode = append(episode, simple("CONDUCTOR", *f.conductor))
	}
	if f.performersSet {
		for i, name := range f.performers {
			actor := simple("ACTOR", name)
			if f.rolesSet && i < len(f.roles) && f.roles[i] != "" {
				actor.Nested = []matroskaSimple{simple("CHARACTER", f.roles[i])}
			}
			episode = append(episode, actor)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(f.custom)) {
		episode = append(episode, simple(k, f.custom[k]))
	}

	if f.disc != nil {
		season = append(season, simple("PART_NUMBER", formatUint(*f.disc)))
	}
	if f.trackCount != nil {
		season = append(season, simple("TOTAL_PARTS", formatUint(*f.trackCount)))
	}
	if f.album != nil {
		collection = append(collection, simple("TITLE", *f.album))
	}

	doc := &matroskaTags{}
	for _, level := range []struct {
		value  int
		simple []matroskaSimple
	}{
		{targetCollection, collection},
		{targetSeason, season},
		{targetEpisode, episode},
	} {
		if len(level.simple) > 0 {
			doc.Tags = append(doc.Tags, matroskaTag{Targets: matroskaTargets{TypeValue: level.value}, Simple: level.simple})
		}
	}
	if len(doc.Tags) == 0 {
		return nil
	}
	return doc
}

func (f *mkvFile) Save() error {
	if f.tool == "" {
		f.addReason("mkvpropedit: %v", ErrNoMkvpropedit)
		return fmt.Errorf("could not save tags: %w", ErrNoMkvpropedit)
	}

	args := []string{f.path}
	var cleanup []string
	defer func() {
		for _, p := range cleanup {
			os.Remove(p)
		}
	}()

	if doc := f.tagsDocument(); doc != nil {
		data, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("could not encode tags: %w", err)
		}
		tagsPath, err := writeTemp("autotag-tags-*.xml", append([]byte(xml.Header), data...))
		if err != nil {
			return fmt.Errorf("could not stage tags: %w", err)
		}
		cleanup = append(cleanup, tagsPath)
		args = append(args, "--tags", "global:"+tagsPath)
	}
	if f.title != nil {
		args = append(args, "--edit", "info", "--set", "title="+*f.title)
	}
	if f.picturesSet && len(f.pictures) > 0 {
		pic := f.pictures[0]
		picPath, err := writeTemp("autotag-cover-*", pic.Data)
		if err != nil {
			return fmt.Errorf("could not stage cover art: %w", err)
		}
		cleanup = append(cleanup, picPath)
		// A missing attachment only draws a warning, so this also works on first tag.
		args = append(args,
			"--delete-attachment", "name:"+pic.Filename,
			"--attachment-name", pic.Filename,
			"--attachment-mime-type", pictureMIME(pic),
			"--add-attachment", picPath)
	}
	if len(args) == 1 {
		return nil
	}

	ctx := f.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, f.tool, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		// Exit status 1 means the file was written with warnings.
		return nil
	}
	if err != nil {
		f.addReason("mkvpropedit: %s", lastLine(out.String()))
		return fmt.Errorf("could not save tags: %w", err)
	}
	return nil
}

func writeTemp(pattern string, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// lastLine returns the last non-empty line of mkvpropedit output, which
// carries the error message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
