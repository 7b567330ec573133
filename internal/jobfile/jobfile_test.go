package jobfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modmotion/internal/plugin"
)

const jobDoc = `
job "night-drive" {
  module  = "tracks/night_drive.txt"
  backend = "segment-concat"
  output  = "out/night"

  seed        = 42
  sample_rate = 22050
  workers     = 4
  preview_ms  = 4000

  no_silence_fallback = true

  frame {
    width  = 320
    height = 180
    fps    = 24
  }

  plugin "gain" {
    gain = 1.5
  }

  plugin "colorwash" {
    cycle_frames = 12
  }

  plugin "pulse" {
    depth = 0.3
  }
}
`

func writeJobFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.hcl")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	doc, err := Load(context.Background(), writeJobFile(t, jobDoc))
	require.NoError(t, err)

	assert.Equal(t, "night-drive", doc.Name)
	assert.Equal(t, "tracks/night_drive.txt", doc.ModulePath)
	assert.Equal(t, "segment-concat", doc.Backend)
	assert.Equal(t, "out/night", doc.OutputDir)
	assert.EqualValues(t, 42, doc.Seed)
	assert.Equal(t, 22050, doc.SampleRate)
	assert.Equal(t, 4, doc.Workers)
	assert.Equal(t, 4*time.Second, doc.Preview)
	assert.True(t, doc.NoSilenceFallback)

	require.NotNil(t, doc.Frame)
	assert.Equal(t, 320, doc.Frame.Width)
	assert.Equal(t, 180, doc.Frame.Height)
	assert.Equal(t, 24, doc.Frame.FPS)

	require.Len(t, doc.Plugins, 3)
	assert.Equal(t, "gain", doc.Plugins[0].Name)
	assert.Equal(t, 1.5, doc.Plugins[0].Config.Float("gain", 0))
	assert.Equal(t, "colorwash", doc.Plugins[1].Name)
	assert.Equal(t, 12, doc.Plugins[1].Config.Int("cycle_frames", 0), "whole numbers decode as int")
	assert.Equal(t, 0.3, doc.Plugins[2].Config.Float("depth", 0))
}

func TestLoad_MinimalJob(t *testing.T) {
	t.Parallel()

	doc, err := Load(context.Background(), writeJobFile(t, `
job "tiny" {
  module = "t.txt"
}
`))
	require.NoError(t, err)
	assert.Equal(t, "t.txt", doc.ModulePath)
	assert.Empty(t, doc.Backend)
	assert.Nil(t, doc.Frame)
	assert.Zero(t, doc.Preview)
	assert.Empty(t, doc.Plugins)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		doc  string
	}{
		{name: "syntax error", doc: `job "x" {`},
		{name: "missing module attribute", doc: `job "x" {}`},
		{name: "no job block", doc: `# empty`},
		{name: "two job blocks", doc: "job \"a\" {\n module = \"a\"\n}\njob \"b\" {\n module = \"b\"\n}"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(context.Background(), writeJobFile(t, tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestInstantiate_SplitsByCapability(t *testing.T) {
	t.Parallel()

	reg := plugin.NewRegistry()
	plugin.RegisterBuiltins(reg)

	doc, err := Load(context.Background(), writeJobFile(t, jobDoc))
	require.NoError(t, err)

	audioSpecs, visualSpecs, err := doc.Instantiate(reg)
	require.NoError(t, err)
	require.Len(t, audioSpecs, 1)
	require.Len(t, visualSpecs, 2)
	assert.Equal(t, "gain", audioSpecs[0].Name)
	assert.Equal(t, plugin.CapabilityVisual, visualSpecs[0].Capability)
	assert.Equal(t, plugin.CapabilityVisualEffect, visualSpecs[1].Capability)
}

func TestInstantiate_UnknownPlugin(t *testing.T) {
	t.Parallel()

	reg := plugin.NewRegistry()
	doc := &Document{Plugins: []PluginDecl{{Name: "ghost", Config: plugin.Config{}}}}
	_, _, err := doc.Instantiate(reg)
	assert.Error(t, err)
}
