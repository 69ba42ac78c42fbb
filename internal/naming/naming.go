// Package naming derives output filenames for blended images and archives.
//
// An input "photo.jpg" converted at intensity 42 becomes "photo_G42.PNG".
// Only the base name of the input is used, so archive entries never carry
// directory components.
package naming

import (
	"fmt"
	"path"
	"strings"
)

// OutputExt is the extension of every converted image.
const OutputExt = ".PNG"

// fallbackStem names inputs whose base name has nothing left after the
// extension is removed (".png", "", "/").
const fallbackStem = "image"

// Stem returns the base name of name without its last extension.
func Stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return fallbackStem
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		return fallbackStem
	}
	return stem
}

// OutputName returns the converted filename for an input at intensity.
func OutputName(name string, intensity int) string {
	return fmt.Sprintf("%s_G%d%s", Stem(name), intensity, OutputExt)
}

// PreviewName returns the filename used when a preview is written to disk.
func PreviewName(name string, intensity int) string {
	return fmt.Sprintf("%s_preview_G%d%s", Stem(name), intensity, OutputExt)
}

// ArchiveName returns the filename of the zip produced for a batch.
func ArchiveName(intensity int) string {
	return fmt.Sprintf("Grayscale_Level_%d_Images.zip", intensity)
}
