package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestFolderResolver_MatchPriority(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exact := touch(t, dir, "kick.wav")
	prefixed := touch(t, dir, "kick_hard.wav")
	touch(t, dir, "my_kick_2.wav")
	touch(t, dir, "ignored.txt")

	r := NewFolderResolver([]string{dir}, nil, nil)

	got, err := r.Resolve("kick", KindAudio)
	require.NoError(t, err)
	assert.Equal(t, exact, got, "exact base-name match wins")

	got, err = r.Resolve("kick_h", KindAudio)
	require.NoError(t, err)
	assert.Equal(t, prefixed, got, "prefix match beats substring")

	got, err = r.Resolve("ick_2", KindAudio)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_kick_2.wav"), got, "substring is the last resort")

	got, err = r.Resolve("KICK", KindAudio)
	require.NoError(t, err)
	assert.Equal(t, exact, got, "matching is case-insensitive")
}

func TestFolderResolver_NotFoundIsEmptyNotError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "kick.wav")
	r := NewFolderResolver([]string{dir}, nil, nil)

	got, err := r.Resolve("snare", KindAudio)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Resolve("", KindAudio)
	require.NoError(t, err)
	assert.Empty(t, got, "empty name never resolves")
}

func TestFolderResolver_KindsAreSeparate(t *testing.T) {
	t.Parallel()

	audioDir, videoDir := t.TempDir(), t.TempDir()
	touch(t, audioDir, "kick.wav")
	clip := touch(t, videoDir, "kick.mp4")

	r := NewFolderResolver([]string{audioDir}, []string{videoDir}, nil)

	got, err := r.Resolve("kick", KindVideo)
	require.NoError(t, err)
	assert.Equal(t, clip, got)

	all, err := r.ListAll(KindVideo)
	require.NoError(t, err)
	assert.Equal(t, []string{clip}, all)
}

func TestFolderResolver_MissingFolderTolerated(t *testing.T) {
	t.Parallel()

	r := NewFolderResolver([]string{"/does/not/exist"}, nil, nil)
	got, err := r.Resolve("kick", KindAudio)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMissingAssetError(t *testing.T) {
	t.Parallel()

	err := &MissingAssetError{Sample: "kick", Kind: KindAudio}
	assert.Contains(t, err.Error(), "kick")
	assert.Contains(t, err.Error(), "audio")
}
