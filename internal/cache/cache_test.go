package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyParams struct {
	Title   string
	Seed    int64
	Plugins map[string]float64
}

func TestKeyFor_Deterministic(t *testing.T) {
	t.Parallel()

	p := keyParams{Title: "Demo", Seed: 42, Plugins: map[string]float64{"gain": 1.5, "peak": 1.0}}
	a, err := KeyFor(p)
	require.NoError(t, err)
	b, err := KeyFor(p)
	require.NoError(t, err)
	assert.Equal(t, a, b, "equal params hash identically; map keys serialize sorted")
	assert.Len(t, string(a), 32)

	c, err := KeyFor(keyParams{Title: "Demo", Seed: 43})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "any parameter change moves the key")
}

func TestKeyFor_UnserializableParams(t *testing.T) {
	t.Parallel()

	_, err := KeyFor(func() {})
	assert.Error(t, err)
}

func TestDir_StoreAndHas(t *testing.T) {
	t.Parallel()

	d := NewDir(filepath.Join(t.TempDir(), "cache"))
	key := Key("abc123")

	assert.False(t, d.Has(key, "track.wav"))

	src := filepath.Join(t.TempDir(), "track.wav")
	require.NoError(t, os.WriteFile(src, []byte("pcm"), 0o644))
	require.NoError(t, d.Store(key, "track.wav", src))

	assert.True(t, d.Has(key, "track.wav"))
	path, err := d.Path(key, "track.wav")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pcm", string(data))

	require.NoError(t, d.Clear())
	assert.False(t, d.Has(key, "track.wav"))
}
