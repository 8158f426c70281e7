package container

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sorrow446/go-mp4tag"
)

// mp4File writes iTunes-style atoms into MP4/M4V/M4A files.
type mp4File struct {
	fields
}

func (f *mp4File) Save() error {
	mp4, err := mp4tag.Open(f.path)
	if err != nil {
		f.addReason("mp4tag: %v", err)
		return fmt.Errorf("could not open MP4: %w", err)
	}
	defer mp4.Close()

	// Freeform atoms for fields without a dedicated atom
	custom := make(map[string]string)
	tags := &mp4tag.MP4Tags{}

	if f.title != nil {
		tags.Title = *f.title
	}
	if f.description != nil {
		tags.Description = *f.description
	}
	if f.genresSet {
		tags.CustomGenre = strings.Join(f.genres, ", ")
	}
	for k, v := range f.custom {
		custom[k] = v
	}
	if f.conductor != nil {
		custom["CONDUCTOR"] = *f.conductor
	}
	if f.performersSet {
		custom["PERFORMERS"] = strings.Join(f.performers, ", ")
	}
	if f.rolesSet {
		custom["PERFORMER ROLES"] = strings.Join(f.roles, ", ")
	}
	if f.album != nil {
		tags.Album = *f.album
	}
	if f.disc != nil {
		tags.DiscNumber = safeInt16(*f.disc)
	}
	if f.track != nil {
		tags.TrackNumber = safeInt16(*f.track)
	}
	if f.trackCount != nil {
		tags.TrackTotal = safeInt16(*f.trackCount)
	}
	if f.year != nil {
		tags.Date = strconv.FormatUint(uint64(*f.year), 10)
	}
	// go-mp4tag appends pictures to the existing ones unless told to drop them
	var del []string
	if f.picturesSet {
		del = append(del, "allpictures")
		for _, pic := range f.pictures {
			tags.Pictures = append(tags.Pictures, &mp4tag.MP4Picture{Format: mp4tag.ImageTypeAuto, Data: pic.Data})
		}
	}
	if len(custom) > 0 {
		tags.Custom = custom
	}

	if err := mp4.Write(tags, del); err != nil {
		return fmt.Errorf("could not save MP4 tags: %w", err)
	}
	return nil
}

// safeInt16 clamps n into the int16 range used by MP4 number atoms.
func safeInt16(n uint) int16 {
	if n > 32767 {
		return 32767
	}
	return int16(n)
}

// pictureMIME returns the declared MIME type or sniffs it from the bytes.
func pictureMIME(p Picture) string {
	if p.MimeType != "" {
		return p.MimeType
	}
	return http.DetectContentType(p.Data)
}
