package app

import (
	"time"

	"github.com/spf13/viper"
)

// Settings are the ambient machine-level knobs: where assets live, which
// encoder binary to call, and default render geometry. They come from an
// optional modmotion.yaml next to the working directory plus environment
// variables, and the job file can override the render-specific ones.
type Settings struct {
	AudioDirs []string
	VideoDirs []string
	ImageDirs []string

	FFmpegBinary  string
	FFmpegTimeout time.Duration

	FrameWidth  int
	FrameHeight int
	FrameFPS    int

	SampleRate int
	MaxLayers  int
	Workers    int
	LookAhead  int

	OutputDir string
	CacheDir  string
}

// LoadSettings reads the ambient configuration. Every key has a default, so
// the file is optional.
func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("modmotion")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MODMOTION")
	v.AutomaticEnv()

	_ = v.BindEnv("assets.audio_dirs", "MODMOTION_AUDIO_DIRS")
	_ = v.BindEnv("assets.video_dirs", "MODMOTION_VIDEO_DIRS")
	_ = v.BindEnv("assets.image_dirs", "MODMOTION_IMAGE_DIRS")
	_ = v.BindEnv("ffmpeg.binary", "MODMOTION_FFMPEG_BINARY")
	_ = v.BindEnv("ffmpeg.timeout_seconds", "MODMOTION_FFMPEG_TIMEOUT")
	_ = v.BindEnv("cache.dir", "MODMOTION_CACHE_DIR")
	_ = v.BindEnv("output.dir", "MODMOTION_OUTPUT_DIR")

	v.SetDefault("assets.audio_dirs", []string{"assets/audio"})
	v.SetDefault("assets.video_dirs", []string{"assets/video"})
	v.SetDefault("assets.image_dirs", []string{"assets/images"})
	v.SetDefault("ffmpeg.binary", "ffmpeg")
	v.SetDefault("ffmpeg.timeout_seconds", 600)
	v.SetDefault("frame.width", 640)
	v.SetDefault("frame.height", 360)
	v.SetDefault("frame.fps", 30)
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("render.max_layers", 8)
	v.SetDefault("render.workers", 4)
	v.SetDefault("render.look_ahead", 64)
	v.SetDefault("output.dir", "out")
	v.SetDefault("cache.dir", "")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return &Settings{
		AudioDirs:     v.GetStringSlice("assets.audio_dirs"),
		VideoDirs:     v.GetStringSlice("assets.video_dirs"),
		ImageDirs:     v.GetStringSlice("assets.image_dirs"),
		FFmpegBinary:  v.GetString("ffmpeg.binary"),
		FFmpegTimeout: time.Duration(v.GetInt("ffmpeg.timeout_seconds")) * time.Second,
		FrameWidth:    v.GetInt("frame.width"),
		FrameHeight:   v.GetInt("frame.height"),
		FrameFPS:      v.GetInt("frame.fps"),
		SampleRate:    v.GetInt("audio.sample_rate"),
		MaxLayers:     v.GetInt("render.max_layers"),
		Workers:       v.GetInt("render.workers"),
		LookAhead:     v.GetInt("render.look_ahead"),
		OutputDir:     v.GetString("output.dir"),
		CacheDir:      v.GetString("cache.dir"),
	}, nil
}
