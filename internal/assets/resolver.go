// Package assets resolves sample names to media file paths. The engine only
// depends on the Resolver interface; the folder-scanning implementation here
// is the default collaborator wired by the CLI.
package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/modmotion/internal/fsutil"
)

// Kind selects which media class a lookup targets.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Extensions recognized per kind, lowercased with leading dot.
var kindExtensions = map[Kind][]string{
	KindAudio: {".wav"},
	KindVideo: {".mp4", ".mov", ".webm", ".mkv", ".avi"},
	KindImage: {".png", ".jpg", ".jpeg", ".bmp", ".gif"},
}

// MissingAssetError reports an unresolved sample reference. It is
// recoverable: composers substitute silence or a placeholder visual unless
// substitution is disabled for the job.
type MissingAssetError struct {
	Sample string
	Kind   Kind
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("no %s asset resolves sample %q", e.Kind, e.Sample)
}

// Resolver maps a sample name to a file path. An empty path with a nil error
// means "not found" and triggers the caller's missing-asset policy.
type Resolver interface {
	Resolve(sampleName string, kind Kind) (string, error)
}

// FolderResolver scans configured folders per kind and matches by file base
// name: exact match first, then prefix, then substring. Scans are cached;
// asset folders are treated as read-only for the life of a job.
type FolderResolver struct {
	folders map[Kind][]string

	mu      sync.Mutex
	listing map[Kind][]string
}

// NewFolderResolver builds a resolver over per-kind asset folders.
func NewFolderResolver(audio, video, images []string) *FolderResolver {
	return &FolderResolver{
		folders: map[Kind][]string{
			KindAudio: audio,
			KindVideo: video,
			KindImage: images,
		},
		listing: map[Kind][]string{},
	}
}

// Resolve implements Resolver.
func (r *FolderResolver) Resolve(sampleName string, kind Kind) (string, error) {
	if sampleName == "" {
		return "", nil
	}
	files, err := r.files(kind)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(sampleName)

	var prefix, contains string
	for _, f := range files {
		base := strings.ToLower(strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)))
		switch {
		case base == want:
			return f, nil
		case prefix == "" && strings.HasPrefix(base, want):
			prefix = f
		case contains == "" && strings.Contains(base, want):
			contains = f
		}
	}
	if prefix != "" {
		return prefix, nil
	}
	return contains, nil
}

// ListAll returns every known asset of a kind, for plugin-generated visuals
// that pick their own source material.
func (r *FolderResolver) ListAll(kind Kind) ([]string, error) {
	return r.files(kind)
}

func (r *FolderResolver) files(kind Kind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.listing[kind]; ok {
		return cached, nil
	}
	var all []string
	for _, folder := range r.folders[kind] {
		found, err := fsutil.FindFilesByExtension(folder, kindExtensions[kind]...)
		if err != nil {
			// Missing folders are tolerated, matching the original resolver.
			continue
		}
		all = append(all, found...)
	}
	r.listing[kind] = all
	return all, nil
}
