package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	for _, name := range []string{"b.wav", "a.WAV", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "d.mp4"), nil, 0o644))

	got, err := FindFilesByExtension(dir, ".wav", ".mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.WAV"),
		filepath.Join(dir, "b.wav"),
		filepath.Join(sub, "d.mp4"),
	}, got, "recursive, case-insensitive, lexically sorted")
}

func TestFindFilesByExtension_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "gone"), ".wav")
	assert.Error(t, err)
}

func TestFindFilesByExtension_NoExtensionsPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		FindFilesByExtension(t.TempDir())
	})
}
