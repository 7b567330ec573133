package render

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/vk/modmotion/internal/cache"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/manifest"
)

const manifestName = "manifest.json"

// exportPackage assembles the downstream package: finished audio and video,
// every clip actually consumed under video_clips/, and the frozen manifest.
func exportPackage(ctx context.Context, job *Job, mb *manifest.Builder, audioPath, videoPath string, usedClips []string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	pkgDir := filepath.Join(job.OutputDir, safeTitle(job.Module.Title)+"_pkg")
	clipsDir := filepath.Join(pkgDir, "video_clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return nil, err
	}

	destAudio := filepath.Join(pkgDir, filepath.Base(audioPath))
	destVideo := filepath.Join(pkgDir, filepath.Base(videoPath))
	if err := copyFile(audioPath, destAudio); err != nil {
		return nil, err
	}
	if err := copyFile(videoPath, destVideo); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, clip := range usedClips {
		if _, ok := seen[clip]; ok {
			continue
		}
		seen[clip] = struct{}{}
		dst := filepath.Join(clipsDir, filepath.Base(clip))
		if err := copyFile(clip, dst); err != nil {
			logger.Warn("could not copy used clip into package", "clip", clip, "error", err)
			continue
		}
		rel, err := filepath.Rel(pkgDir, dst)
		if err != nil {
			rel = dst
		}
		mb.AddCopiedClip(rel)
	}

	mb.SetOutputs(filepath.Base(destAudio), filepath.Base(destVideo))
	m, err := mb.Freeze()
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(pkgDir, manifestName)
	if err := m.WriteFile(manifestPath); err != nil {
		return nil, err
	}

	return &Result{
		AudioPath:    audioPath,
		VideoPath:    videoPath,
		PackageDir:   pkgDir,
		ManifestPath: manifestPath,
		Manifest:     m,
	}, nil
}

// loadCached returns a previous result for the key when the cache holds all
// three artifacts.
func loadCached(job *Job, key cache.Key) (*Result, bool) {
	c := job.Cache
	base := safeTitle(job.Module.Title)
	audioName := base + "_track.wav"
	videoName := base + "_video.mp4"
	if !c.Has(key, manifestName) || !c.Has(key, audioName) || !c.Has(key, videoName) {
		return nil, false
	}

	manifestPath, err := c.Path(key, manifestName)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, false
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}

	audioPath, _ := c.Path(key, audioName)
	videoPath, _ := c.Path(key, videoName)
	return &Result{
		AudioPath:    audioPath,
		VideoPath:    videoPath,
		ManifestPath: manifestPath,
		Manifest:     &m,
	}, true
}

// storeCached copies the finished artifacts into the cache. Failures are
// logged and ignored; caching is best effort.
func storeCached(ctx context.Context, job *Job, key cache.Key, res *Result) {
	logger := ctxlog.FromContext(ctx)
	for name, src := range map[string]string{
		filepath.Base(res.AudioPath): res.AudioPath,
		filepath.Base(res.VideoPath): res.VideoPath,
		manifestName:                 res.ManifestPath,
	} {
		if err := job.Cache.Store(key, name, src); err != nil {
			logger.Warn("could not store artifact in cache", "artifact", name, "error", err)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
