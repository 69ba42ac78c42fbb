package files

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func names(t *testing.T, paths []string, opts CollectOptions) ([]string, []Skipped) {
	t.Helper()
	inputs, skipped, err := Collect(context.Background(), paths, opts)
	require.NoError(t, err)
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in.Name
		assert.NotEmpty(t, in.Data)
	}
	return out, skipped
}

func TestCollect_WalksDirectoriesInLexicalOrder(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "b.png"))
	writePNG(t, filepath.Join(root, "a.png"))
	writePNG(t, filepath.Join(root, "nested", "c.png"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello, not an image"), 0o644))

	got, skipped := names(t, []string{root}, CollectOptions{})
	assert.Equal(t, []string{"a.png", "b.png", "nested/c.png"}, got)
	require.Len(t, skipped, 1)
	assert.Equal(t, filepath.Join(root, "notes.txt"), skipped[0].Path)
}

func TestCollect_ExplicitFilesPassThrough(t *testing.T) {
	root := t.TempDir()
	bogus := filepath.Join(root, "bogus.jpg")
	require.NoError(t, os.WriteFile(bogus, []byte("x"), 0o644))
	img := filepath.Join(root, "real.png")
	writePNG(t, img)

	inputs, skipped, err := Collect(context.Background(), []string{bogus, img}, CollectOptions{})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, inputs, 2)
	assert.Equal(t, "bogus.jpg", inputs[0].Name)
	assert.Equal(t, []byte("x"), inputs[0].Data)
	assert.Equal(t, "real.png", inputs[1].Name)
}

func TestCollect_SkipsExcludedDirectory(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "in.png"))
	writePNG(t, filepath.Join(root, "out", "in_G50.PNG"))

	got, _ := names(t, []string{root}, CollectOptions{ExcludeDir: filepath.Join(root, "out")})
	assert.Equal(t, []string{"in.png"}, got)
}

func TestCollect_MissingPath(t *testing.T) {
	_, _, err := Collect(context.Background(), []string{filepath.Join(t.TempDir(), "gone.png")}, CollectOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Collect(ctx, []string{t.TempDir()}, CollectOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := WriteArtifact(dir, "photo_G42.PNG", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo_G42.PNG"), path)

	// Overwrites in place.
	_, err = WriteArtifact(dir, "photo_G42.PNG", []byte("second"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestWriteArtifact_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteArtifact(dir, "../escape.PNG", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.PNG"), path)
}

func TestIsWithin(t *testing.T) {
	assert.True(t, isWithin("/a/b/c", "/a/b"))
	assert.True(t, isWithin("/a/b", "/a/b"))
	assert.False(t, isWithin("/a/bc", "/a/b"))
	assert.False(t, isWithin("/a", "/a/b"))
	assert.True(t, isWithin("/a/b/..c", "/a/b"))
}
