package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/modmotion/internal/assets"
	"github.com/vk/modmotion/internal/backend"
	"github.com/vk/modmotion/internal/cache"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/encoder"
	"github.com/vk/modmotion/internal/frame"
	"github.com/vk/modmotion/internal/jobfile"
	"github.com/vk/modmotion/internal/modfile"
	"github.com/vk/modmotion/internal/model"
	"github.com/vk/modmotion/internal/render"
)

// Run executes one render job end to end based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	doc, err := jobfile.Load(ctx, a.config.JobPath)
	if err != nil {
		return fmt.Errorf("failed to load job file: %w", err)
	}
	a.applyOverrides(doc)

	mod, err := modfile.Parse(doc.ModulePath)
	if err != nil {
		return fmt.Errorf("failed to parse module: %w", err)
	}
	a.logger.Info("Module parsed.", "title", mod.Title, "patterns", len(mod.Patterns), "channels", mod.Channels)

	job, err := a.buildJob(doc, mod)
	if err != nil {
		return err
	}

	a.logger.Info("Starting render.", "job", doc.Name, "backend", job.Backend)
	res, err := render.Render(ctx, job)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	a.logger.Info("Render finished.")

	fmt.Fprintf(a.outW, "audio:    %s\n", res.AudioPath)
	fmt.Fprintf(a.outW, "video:    %s\n", res.VideoPath)
	if res.PackageDir != "" {
		fmt.Fprintf(a.outW, "package:  %s\n", res.PackageDir)
		fmt.Fprintf(a.outW, "manifest: %s\n", res.ManifestPath)
	}
	return nil
}

// applyOverrides lets CLI flags win over the job document.
func (a *App) applyOverrides(doc *jobfile.Document) {
	if a.config.Backend != "" {
		doc.Backend = a.config.Backend
	}
	if a.config.OutputDir != "" {
		doc.OutputDir = a.config.OutputDir
	}
	if a.config.PreviewMS > 0 {
		doc.Preview = time.Duration(a.config.PreviewMS) * time.Millisecond
	}
	if a.config.Workers > 0 {
		doc.Workers = a.config.Workers
	}
}

// buildJob assembles the render job from the document, filling every unset
// field from the ambient settings.
func (a *App) buildJob(doc *jobfile.Document, mod *model.Module) (*render.Job, error) {
	s := a.settings

	audioSpecs, visualSpecs, err := doc.Instantiate(a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate plugins: %w", err)
	}

	spec := frame.Spec{Width: s.FrameWidth, Height: s.FrameHeight, FPS: s.FrameFPS}
	if doc.Frame != nil {
		spec = frame.Spec{Width: doc.Frame.Width, Height: doc.Frame.Height, FPS: doc.Frame.FPS}
	}

	sel := backend.SelectInMemory
	if doc.Backend != "" {
		sel, err = backend.ParseSelection(doc.Backend)
		if err != nil {
			return nil, err
		}
	}

	job := &render.Job{
		ID:                     render.NewJobID(),
		Module:                 mod,
		Resolver:               assets.NewFolderResolver(s.AudioDirs, s.VideoDirs, s.ImageDirs),
		Encoder:                &encoder.FFmpeg{Binary: s.FFmpegBinary, Timeout: s.FFmpegTimeout},
		AudioPlugins:           audioSpecs,
		VisualPlugins:          visualSpecs,
		Backend:                sel,
		Seed:                   doc.Seed,
		OutputDir:              firstNonEmpty(doc.OutputDir, s.OutputDir),
		FrameSpec:              spec,
		SampleRate:             firstPositive(doc.SampleRate, s.SampleRate),
		MaxLayers:              firstPositive(doc.MaxLayers, s.MaxLayers),
		Workers:                firstPositive(doc.Workers, s.Workers),
		LookAhead:              firstPositive(doc.LookAhead, s.LookAhead),
		Preview:                doc.Preview,
		DisableSilenceFallback: doc.NoSilenceFallback,
		Observer:               &logObserver{logger: a.logger},
	}
	if s.CacheDir != "" && !a.config.NoCache {
		job.Cache = cache.NewDir(s.CacheDir)
	}
	return job, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
