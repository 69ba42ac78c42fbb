package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grayblend/internal/archive"
	"grayblend/internal/packager"
)

// resetFlags restores every flag to its default so runs do not leak into
// each other through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// sandbox isolates config discovery from the developer's machine.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)
	return dir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 13)
	}
	for y := range h {
		for x := range w {
			c := img.NRGBAAt(x, y)
			c.A = 255
			img.SetNRGBA(x, y, color.NRGBA(c))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestConvert_DirectoryProducesArchive(t *testing.T) {
	dir := sandbox(t)
	writePNG(t, filepath.Join(dir, "in", "a.png"), 3, 3)
	writePNG(t, filepath.Join(dir, "in", "sub", "b.png"), 2, 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "readme.txt"), []byte("just some text here"), 0o644))
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "convert", "--no-tui", "-g", "25", "-o", outDir, filepath.Join(dir, "in"))
	require.NoError(t, err, out)

	zipPath := filepath.Join(outDir, "Grayscale_Level_25_Images.zip")
	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	names, err := archive.List(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_G25.PNG", "b_G25.PNG"}, names)

	assert.Contains(t, out, "Converted")
	assert.Contains(t, out, "Non-image files ignored")
	assert.Contains(t, out, zipPath)
}

func TestConvert_SingleFile(t *testing.T) {
	dir := sandbox(t)
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 4, 4)

	out, err := run(t, "convert", "--no-tui", "--intensity", "42", "--output", "out", src)
	require.NoError(t, err, out)

	_, err = os.Stat(filepath.Join(dir, "out", "photo_G42.PNG"))
	assert.NoError(t, err)
}

func TestConvert_ReportsSkippedItems(t *testing.T) {
	dir := sandbox(t)
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 2, 2)
	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not a jpeg"), 0o644))

	out, err := run(t, "convert", "--no-tui", "-o", "out", good, bad)
	require.NoError(t, err, out)

	assert.Contains(t, out, "Skipped 1 image(s):")
	assert.Contains(t, out, "bad.jpg")
}

func TestConvert_AllInputsFail(t *testing.T) {
	dir := sandbox(t)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))

	out, err := run(t, "convert", "--no-tui", "-o", "out", bad)
	require.ErrorIs(t, err, packager.ErrEmptyBatch)
	assert.Contains(t, out, "bad.png")

	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestConvert_RejectsBadIntensity(t *testing.T) {
	dir := sandbox(t)
	src := filepath.Join(dir, "a.png")
	writePNG(t, src, 1, 1)

	_, err := run(t, "convert", "--no-tui", "-g", "150", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Intensity")
}

func TestConvert_IntensityFromConfigFile(t *testing.T) {
	dir := sandbox(t)
	src := filepath.Join(dir, "a.png")
	writePNG(t, src, 1, 1)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("intensity: 7\noutput:\n  dir: fromcfg\n"), 0o644))

	out, err := run(t, "--config", cfgPath, "convert", "--no-tui", src)
	require.NoError(t, err, out)

	_, err = os.Stat(filepath.Join(dir, "fromcfg", "a_G7.PNG"))
	assert.NoError(t, err)
}

func TestPreview_WritesPreviewFile(t *testing.T) {
	dir := sandbox(t)
	src := filepath.Join(dir, "shot.png")
	writePNG(t, src, 3, 2)

	out, err := run(t, "preview", "-g", "60", "-o", "prev", src)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Preview written to:")

	data, err := os.ReadFile(filepath.Join(dir, "prev", "shot_preview_G60.PNG"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
}

func TestConfigInitAndShow(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "gb.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err, out)
	assert.FileExists(t, path)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "# loaded from "+path)
	assert.Contains(t, out, "intensity: 100")
	assert.Contains(t, out, "cors_origin:")
}

func TestConfigShow_EnvironmentOverride(t *testing.T) {
	sandbox(t)
	t.Setenv("GRAYBLEND_WORKERS", "3")

	out, err := run(t, "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "workers: 3")
	assert.NotContains(t, out, "# loaded from")
}
