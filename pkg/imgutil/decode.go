package imgutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	// ErrUnsupported is returned for data whose signature matches no known format.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrTooLarge is returned when the header declares more pixels than allowed.
	ErrTooLarge = errors.New("image dimensions exceed limit")
)

// DefaultMaxPixels caps width*height when no limit is given.
const DefaultMaxPixels = 178_956_970

// Decode sniffs data and decodes it with the matching codec. The format is
// taken from the content, never from a filename. The header is read first and
// images larger than maxPixels are rejected before any pixel buffer is
// allocated; maxPixels <= 0 means DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (image.Image, Kind, error) {
	kind, err := Sniff(data)
	if err != nil {
		return nil, KindUnknown, err
	}
	if kind == KindUnknown {
		return nil, KindUnknown, ErrUnsupported
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, err := decodeConfig(kind, bytes.NewReader(data))
	if err != nil {
		return nil, kind, fmt.Errorf("%s header: %w", kind, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(maxPixels) {
		return nil, kind, fmt.Errorf("%s %dx%d: %w (%d pixels)", kind, cfg.Width, cfg.Height, ErrTooLarge, maxPixels)
	}

	img, err := decodeKind(kind, bytes.NewReader(data))
	if err != nil {
		return nil, kind, fmt.Errorf("%s: %w", kind, err)
	}
	return img, kind, nil
}

func decodeKind(kind Kind, r io.Reader) (image.Image, error) {
	switch kind {
	case KindJPEG:
		return jpeg.Decode(r)
	case KindPNG:
		return png.Decode(r)
	case KindTIFF:
		return tiff.Decode(r)
	case KindBMP:
		return bmp.Decode(r)
	default:
		return nil, ErrUnsupported
	}
}

func decodeConfig(kind Kind, r io.Reader) (image.Config, error) {
	switch kind {
	case KindJPEG:
		return jpeg.DecodeConfig(r)
	case KindPNG:
		return png.DecodeConfig(r)
	case KindTIFF:
		return tiff.DecodeConfig(r)
	case KindBMP:
		return bmp.DecodeConfig(r)
	default:
		return image.Config{}, ErrUnsupported
	}
}
