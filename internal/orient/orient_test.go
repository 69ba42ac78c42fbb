package orient

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildExifOrientation returns a little-endian TIFF block holding one
// Orientation entry.
func buildExifOrientation(value uint16) []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, value)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	return tiff.Bytes()
}

func buildJPEGWithOrientation(value uint16) []byte {
	exif := append([]byte("Exif\x00\x00"), buildExifOrientation(value)...)

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write([]byte{0xff, 0xd9})
	return buf.Bytes()
}

// stripe returns a 2x1 image: red on the left, blue on the right.
func stripe() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})
	return img
}

func TestRead_Orientation(t *testing.T) {
	o, err := Read(buildJPEGWithOrientation(6))
	require.NoError(t, err)
	assert.Equal(t, Rotate90CW, o)
}

func TestRead_NoExif(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, stripe(), nil))

	o, err := Read(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Normal, o)
}

func TestRead_EveryOrientation(t *testing.T) {
	for v := uint16(1); v <= 8; v++ {
		o, err := Read(buildJPEGWithOrientation(v))
		require.NoError(t, err)
		assert.Equal(t, Orientation(v), o)
	}
}

func TestRead_OutOfRangeIsNormal(t *testing.T) {
	o, err := Read(buildJPEGWithOrientation(9))
	require.NoError(t, err)
	assert.Equal(t, Normal, o)
}

func TestApply(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	tests := []struct {
		name   string
		o      Orientation
		size   image.Point
		first  color.NRGBA
		second color.NRGBA
	}{
		{"normal", Normal, image.Pt(2, 1), red, blue},
		{"flip horizontal", FlipH, image.Pt(2, 1), blue, red},
		{"rotate 180", Rotate180, image.Pt(2, 1), blue, red},
		{"flip vertical", FlipV, image.Pt(2, 1), red, blue},
		{"rotate 90 clockwise", Rotate90CW, image.Pt(1, 2), red, blue},
		{"rotate 90 counter clockwise", Rotate90CC, image.Pt(1, 2), blue, red},
		{"transpose", Transpose, image.Pt(1, 2), red, blue},
		{"transverse", Transverse, image.Pt(1, 2), blue, red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Apply(stripe(), tt.o)
			require.Equal(t, tt.size, out.Bounds().Size())

			second := image.Pt(1, 0)
			if tt.size.X == 1 {
				second = image.Pt(0, 1)
			}
			assert.Equal(t, tt.first, color.NRGBAModel.Convert(out.At(0, 0)))
			assert.Equal(t, tt.second, color.NRGBAModel.Convert(out.At(second.X, second.Y)))
		})
	}
}

func TestOrientation_Valid(t *testing.T) {
	assert.True(t, Normal.Valid())
	assert.True(t, Rotate90CC.Valid())
	assert.False(t, Orientation(0).Valid())
	assert.False(t, Orientation(9).Valid())
}
