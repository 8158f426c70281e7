package container

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// id3File writes ID3v2 frames into MP3 files.
type id3File struct {
	fields
}

func (f *id3File) Save() error {
	tag, err := id3v2.Open(f.path, id3v2.Options{Parse: true})
	if err != nil {
		f.addReason("id3v2: %v", err)
		return fmt.Errorf("could not open MP3: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if tag.Version() < 3 {
		tag.SetVersion(4)
	}

	if f.title != nil {
		tag.SetTitle(*f.title)
	}
	if f.description != nil {
		commID := tag.CommonID("Comments")
		tag.DeleteFrames(commID)
		if *f.description != "" {
			tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding:    id3v2.EncodingUTF8,
				Language:    "eng",
				Description: "",
				Text:        *f.description,
			})
		}
	}
	if f.genresSet {
		tag.SetGenre(strings.Join(f.genres, "; "))
	}
	if len(f.custom) > 0 {
		setUserTextFrames(tag, f.custom)
	}
	if f.conductor != nil {
		tag.AddTextFrame(tag.CommonID("Conductor/performer refinement"), id3v2.EncodingUTF8, *f.conductor)
	}
	if f.performersSet {
		tag.SetArtist(strings.Join(f.performers, "/"))
	}
	if f.rolesSet {
		setUserTextFrames(tag, map[string]string{"PERFORMER ROLES": strings.Join(f.roles, "/")})
	}
	if f.album != nil {
		tag.SetAlbum(*f.album)
	}
	if f.disc != nil {
		tag.AddTextFrame(tag.CommonID("Part of a set"), id3v2.EncodingUTF8, strconv.FormatUint(uint64(*f.disc), 10))
	}
	if f.track != nil {
		trck := strconv.FormatUint(uint64(*f.track), 10)
		if f.trackCount != nil && *f.trackCount > 0 {
			trck += "/" + strconv.FormatUint(uint64(*f.trackCount), 10)
		}
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trck)
	}
	if f.year != nil {
		tag.SetYear(strconv.FormatUint(uint64(*f.year), 10))
	}
	if f.picturesSet {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		for _, pic := range f.pictures {
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    pictureMIME(pic),
				PictureType: id3v2.PTFrontCover,
				Description: pic.Filename,
				Picture:     pic.Data,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("could not save MP3 tags: %w", err)
	}
	return nil
}

// setUserTextFrames replaces TXXX frames whose description is in values and
// keeps every other TXXX frame.
func setUserTextFrames(tag *id3v2.Tag, values map[string]string) {
	id := tag.CommonID("User defined text information frame")
	var keep []id3v2.UserDefinedTextFrame
	for _, fr := range tag.GetFrames(id) {
		udtf, ok := fr.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		if _, replaced := values[udtf.Description]; !replaced {
			keep = append(keep, udtf)
		}
	}
	tag.DeleteFrames(id)
	for _, udtf := range keep {
		tag.AddUserDefinedTextFrame(udtf)
	}
	for desc, value := range values {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: desc,
			Value:       value,
		})
	}
}
