// Package orient reads the EXIF orientation tag and rotates pixels upright.
package orient

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// Orientation is the EXIF Orientation tag value (1-8).
type Orientation int

const (
	Normal     Orientation = 1
	FlipH      Orientation = 2
	Rotate180  Orientation = 3
	FlipV      Orientation = 4
	Transpose  Orientation = 5
	Rotate90CW Orientation = 6
	Transverse Orientation = 7
	Rotate90CC Orientation = 8
)

const orientationTag = "Orientation"

// Valid reports whether o is one of the eight defined orientations.
func (o Orientation) Valid() bool {
	return o >= Normal && o <= Rotate90CC
}

// Read returns the orientation stored in the EXIF block of data. Images
// without EXIF, or without the tag, report Normal.
func Read(data []byte) (Orientation, error) {
	raw, err := exif.SearchAndExtractExif(data)
	if errors.Is(err, exif.ErrNoExif) {
		return Normal, nil
	}
	if err != nil {
		return Normal, fmt.Errorf("locate exif: %w", err)
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return Normal, fmt.Errorf("read exif: %w", err)
	}

	for _, tag := range tags {
		if tag.TagName != orientationTag {
			continue
		}
		o := Orientation(firstUint(tag.Value))
		if !o.Valid() {
			return Normal, nil
		}
		return o, nil
	}

	return Normal, nil
}

// Apply returns img transformed so that it displays upright.
func Apply(img image.Image, o Orientation) image.Image {
	switch o {
	case FlipH:
		return imaging.FlipH(img)
	case Rotate180:
		return imaging.Rotate180(img)
	case FlipV:
		return imaging.FlipV(img)
	case Transpose:
		return imaging.Transpose(img)
	case Rotate90CW:
		return imaging.Rotate270(img)
	case Transverse:
		return imaging.Transverse(img)
	case Rotate90CC:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func firstUint(v any) int {
	switch val := v.(type) {
	case []uint16:
		if len(val) > 0 {
			return int(val[0])
		}
	case []uint32:
		if len(val) > 0 {
			return int(val[0])
		}
	case uint16:
		return int(val)
	}
	return 0
}
