package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/backend"
	"github.com/vk/modmotion/internal/cache"
	"github.com/vk/modmotion/internal/composer"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/manifest"
	"github.com/vk/modmotion/internal/plugin"
	"github.com/vk/modmotion/internal/timeline"
)

// Render executes one job end to end and returns the finished media paths
// plus the frozen manifest. Typed errors from lower layers propagate
// unmodified; encoder failures surface as *encoder.EncodeError with any
// partial output already deleted.
func Render(ctx context.Context, job *Job) (*Result, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = NewJobID()
	}
	ctx = ctxlog.With(ctx, "jobID", job.ID, "backend", job.Backend)
	logger := ctxlog.FromContext(ctx)

	var key cache.Key
	if job.Cache != nil {
		k, err := job.cacheKey()
		if err != nil {
			return nil, err
		}
		key = k
		if res, ok := loadCached(job, key); ok {
			logger.Info("Cache hit, reusing previous render.", "key", key)
			return res, nil
		}
	}

	// Timeline synthesis. Malformed input fails here, before any
	// rendering starts.
	entries, err := timeline.Build(job.Module)
	if err != nil {
		return nil, err
	}
	if job.Preview > 0 {
		entries = timeline.Truncate(entries, job.Preview)
	}
	total := timeline.Total(entries)
	logger.Info("Timeline built.", "entries", len(entries), "total", total)

	audioChain, err := plugin.NewAudioChain(job.AudioPlugins...)
	if err != nil {
		return nil, err
	}
	visualChain, err := plugin.NewVisualChain(job.VisualPlugins...)
	if err != nil {
		return nil, err
	}

	mb := manifest.NewBuilder(job.Module.Title, job.Module.Order, len(job.Module.Patterns), entries)

	// Audio composition.
	ac := &composer.AudioComposer{
		Resolver:        job.Resolver,
		SampleRate:      job.SampleRate,
		DeclaredPath:    declaredPath(job),
		SilenceFallback: !job.DisableSilenceFallback,
	}
	buf, audioUsages, err := ac.Compose(ctx, entries, audioChain)
	if err != nil {
		return nil, err
	}
	for _, u := range audioUsages {
		mb.RecordUsage(u.Entry, u.Asset, u.Substituted)
	}
	logger.Info("Audio composed.", "duration", buf.Duration())

	// Video composition. The producer is lazy; frames materialize inside
	// the backend.
	vc := &composer.VideoComposer{
		Resolver:     job.Resolver,
		Clips:        job.Encoder,
		Mapper:       composer.NewChannelMapper(job.MaxLayers),
		Spec:         job.FrameSpec,
		DeclaredPath: declaredPath(job),
	}
	frames, videoUsages, err := vc.Compose(ctx, entries, visualChain)
	if err != nil {
		return nil, err
	}
	var usedClips []string
	for _, u := range videoUsages {
		mb.RecordUsage(u.Entry, u.Asset, u.Substituted)
		if u.Asset != "" {
			usedClips = append(usedClips, u.Asset)
		}
	}

	// Drive the selected backend.
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, err
	}
	base := safeTitle(job.Module.Title)
	audioPath := filepath.Join(job.OutputDir, base+"_track.wav")
	videoPath := filepath.Join(job.OutputDir, base+"_video.mp4")
	if err := audio.WriteWAVFile(audioPath, buf); err != nil {
		return nil, err
	}

	bk := newBackend(job)
	bJob := backend.Job{
		Audio:         buf,
		Frames:        frames,
		SegmentBounds: segmentBounds(entries, job),
		OutputPath:    videoPath,
	}
	if _, err := bk.Render(ctx, bJob); err != nil {
		// The backend already discarded partial video output; the audio
		// track must not survive a failed job either.
		os.Remove(audioPath)
		return nil, err
	}

	// Package export + manifest freeze, success path only.
	res, err := exportPackage(ctx, job, mb, audioPath, videoPath, usedClips)
	if err != nil {
		return nil, err
	}
	if job.Cache != nil {
		storeCached(ctx, job, key, res)
	}
	logger.Info("Render complete.", "video", res.VideoPath, "manifest", res.ManifestPath)
	return res, nil
}

func newBackend(job *Job) backend.RenderBackend {
	switch job.Backend {
	case backend.SelectSegmentConcat:
		return &backend.SegmentConcat{Encoder: job.Encoder, Observer: job.Observer, Workers: job.Workers}
	case backend.SelectStreamingPipe:
		return &backend.StreamingPipe{Encoder: job.Encoder, Observer: job.Observer, Workers: job.Workers, LookAhead: job.LookAhead}
	default:
		return &backend.InMemoryCompose{Encoder: job.Encoder, Observer: job.Observer}
	}
}

// segmentBounds maps row boundaries to frame offsets: ascending, starting
// at 0 and ending at the total frame count. Computed from absolute times so
// every backend sees identical boundaries.
func segmentBounds(entries []timeline.Entry, job *Job) []int {
	bounds := []int{0}
	last := -1
	for _, e := range entries {
		end := job.FrameSpec.FrameIndexAt(e.End())
		if end != last {
			if end > bounds[len(bounds)-1] {
				bounds = append(bounds, end)
			}
			last = end
		}
	}
	return bounds
}

func declaredPath(job *Job) func(string) string {
	return job.Module.SamplePath
}

func safeTitle(title string) string {
	if title == "" {
		return "untitled"
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, title)
	if clean == "" {
		return "untitled"
	}
	return clean
}
