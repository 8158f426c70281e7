package container

import (
	"fmt"
	"strconv"

	"go.senan.xyz/taglib"
)

// TagLib property keys without an exported constant.
const (
	propDescription = "DESCRIPTION"
	propConductor   = "CONDUCTOR"
	propPerformer   = "PERFORMER"
	propRole        = "PERFORMER ROLE"
	propTrackTotal  = "TRACKTOTAL"
)

// taglibFile writes property maps through TagLib. It serves every format
// without a dedicated backend.
type taglibFile struct {
	fields
}

func (f *taglibFile) Save() error {
	props := make(map[string][]string)

	if f.title != nil {
		props[taglib.Title] = []string{*f.title}
	}
	if f.description != nil {
		props[propDescription] = []string{*f.description}
	}
	if f.genresSet {
		props[taglib.Genre] = f.genres
	}
	for k, v := range f.custom {
		props[k] = []string{v}
	}
	if f.conductor != nil {
		props[propConductor] = []string{*f.conductor}
	}
	if f.performersSet {
		props[propPerformer] = f.performers
	}
	if f.rolesSet {
		props[propRole] = f.roles
	}
	if f.album != nil {
		props[taglib.Album] = []string{*f.album}
	}
	if f.disc != nil {
		props[taglib.DiscNumber] = []string{formatUint(*f.disc)}
	}
	if f.track != nil {
		props[taglib.TrackNumber] = []string{formatUint(*f.track)}
	}
	if f.trackCount != nil {
		props[propTrackTotal] = []string{formatUint(*f.trackCount)}
	}
	if f.year != nil {
		props[taglib.Date] = []string{formatUint(*f.year)}
	}

	if err := taglib.WriteTags(f.path, props, 0); err != nil {
		f.addTaglibReason(err)
		return fmt.Errorf("could not save tags: %w", err)
	}

	if f.picturesSet && len(f.pictures) > 0 {
		pic := f.pictures[0]
		if err := taglib.WriteImageOptions(f.path, pic.Data, 0, "Front Cover", pic.Filename, pictureMIME(pic)); err != nil {
			f.addTaglibReason(err)
			return fmt.Errorf("could not save cover art: %w", err)
		}
		if err := dropExtraImages(f.path); err != nil {
			f.addTaglibReason(err)
			return fmt.Errorf("could not save cover art: %w", err)
		}
	}
	return nil
}

// maxImages bounds how many extra images dropExtraImages removes.
const maxImages = 64

// dropExtraImages removes every embedded image after the first.
func dropExtraImages(path string) error {
	for range maxImages {
		img, err := taglib.ReadImageOptions(path, 1)
		if err != nil {
			return err
		}
		if len(img) == 0 {
			return nil
		}
		if err := taglib.WriteImageOptions(path, nil, 1, "", "", ""); err != nil {
			return err
		}
	}
	return nil
}

func (f *taglibFile) addTaglibReason(err error) {
	f.addReason("taglib: %v (%s container)", err, f.caps.Format)
}

func formatUint(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
