//go:build !js
// +build !js

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeTaggedMP3(t *testing.T, path, title string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetTitle(title)
	_, err = tag.WriteTo(f)
	require.NoError(t, err)
}

func TestScan_BuildsCategoriesFromDirectories(t *testing.T) {
	root := t.TempDir()
	writeTaggedMP3(t, filepath.Join(root, "rain-sounds", "b.mp3"), "Soft Rain")
	writeFile(t, filepath.Join(root, "rain-sounds", "a.mp3"), []byte("not really audio"))
	writeFile(t, filepath.Join(root, "rain-sounds", "cover.jpg"), []byte{0xff})
	writeFile(t, filepath.Join(root, "singing_bowls", "bowl.wav"), []byte("RIFF"))
	writeFile(t, filepath.Join(root, "empty", "readme.txt"), []byte("x"))
	writeFile(t, filepath.Join(root, ".hidden", "x.mp3"), []byte("x"))

	c, err := Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"Rain Sounds", "Singing Bowls"}, c.Order)

	rain, ok := c.Get("Rain Sounds")
	require.True(t, ok)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, rain.Files)
	assert.Equal(t, "rain-sounds", rain.FolderName())
	assert.Equal(t, "Soft Rain", rain.Titles["b.mp3"])
	assert.NotContains(t, rain.Titles, "a.mp3")

	assert.Equal(t, "/assets/audio/singing_bowls/bowl.wav", c.AudioURL("Singing Bowls", "bowl.wav"))
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestScan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rain", "a.mp3"), []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
