package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		intensity int
		want      string
	}{
		{"jpeg", "photo.jpg", 42, "photo_G42.PNG"},
		{"png upper case", "SCAN.PNG", 100, "SCAN_G100.PNG"},
		{"zero", "a.jpeg", 0, "a_G0.PNG"},
		{"only last extension stripped", "archive.tar.png", 75, "archive.tar_G75.PNG"},
		{"no extension", "README", 10, "README_G10.PNG"},
		{"directories removed", "holiday/2024/beach.jpg", 5, "beach_G5.PNG"},
		{"windows separators", `C:\pics\cat.png`, 5, "cat_G5.PNG"},
		{"dot file", ".png", 5, "image_G5.PNG"},
		{"empty", "", 5, "image_G5.PNG"},
		{"traversal", "../../etc/passwd.png", 1, "passwd_G1.PNG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(tt.input, tt.intensity))
		})
	}
}

func TestArchiveAndPreviewNames(t *testing.T) {
	assert.Equal(t, "Grayscale_Level_75_Images.zip", ArchiveName(75))
	assert.Equal(t, "photo_preview_G30.PNG", PreviewName("photo.jpg", 30))
}

func TestCollisionResolver(t *testing.T) {
	cr := NewCollisionResolver()

	assert.Equal(t, "photo_G42.PNG", cr.Resolve("photo_G42.PNG"))
	assert.Equal(t, "photo_G42_2.PNG", cr.Resolve("photo_G42.PNG"))
	assert.Equal(t, "other_G42.PNG", cr.Resolve("other_G42.PNG"))
	assert.Equal(t, "photo_G42_3.PNG", cr.Resolve("photo_G42.PNG"))
}

func TestCollisionResolver_SkipsGenuineNames(t *testing.T) {
	cr := NewCollisionResolver()

	assert.Equal(t, "a_G1_2.PNG", cr.Resolve("a_G1_2.PNG"))
	assert.Equal(t, "a_G1.PNG", cr.Resolve("a_G1.PNG"))
	assert.Equal(t, "a_G1_3.PNG", cr.Resolve("a_G1.PNG"))
}
