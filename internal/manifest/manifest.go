// Package manifest accumulates exactly what a render consumed and freezes
// it into the usage manifest downstream packaging depends on.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vk/modmotion/internal/timeline"
)

// Record is one timeline row window with the assets it actually consumed.
// Times are integer milliseconds.
type Record struct {
	Start        int64    `json:"start"`
	Duration     int64    `json:"duration"`
	PatternIndex int      `json:"pattern_index"`
	RowIndex     int      `json:"row_index"`
	UsedAssets   []string `json:"used_assets"`
	// Substitutions lists sample names whose windows were filled by a
	// silence or placeholder stand-in. Warnings, not errors.
	Substitutions []string `json:"substitutions,omitempty"`
}

// Manifest is the frozen usage report for one successful render.
type Manifest struct {
	ModuleTitle      string   `json:"module_title"`
	Audio            string   `json:"audio"`
	Video            string   `json:"video"`
	CopiedVideoClips []string `json:"copied_video_clips"`
	Order            []int    `json:"order"`
	PatternsCount    int      `json:"patterns_count"`
	Timeline         []Record `json:"timeline"`
}

// WriteFile serializes the manifest as indented JSON.
func (m *Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Builder accumulates usage during a render and freezes on success only.
// It is the single mutable structure shared across render workers, so every
// mutation goes through its lock.
type Builder struct {
	mu     sync.Mutex
	frozen bool

	title    string
	order    []int
	patterns int
	audio    string
	video    string
	clips    []string

	records []Record
	// rowIndex maps an entry start time to its row record, since every
	// entry of a row shares the start.
	rowIndex map[time.Duration]int
	// seen dedupes assets and substitutions per record.
	seen map[int]map[string]struct{}
}

// NewBuilder seeds the builder with the timeline's row structure, so the
// frozen timeline field is exactly the builder's output annotated with
// usage.
func NewBuilder(title string, order []int, patternsCount int, entries []timeline.Entry) *Builder {
	b := &Builder{
		title:    title,
		order:    append([]int(nil), order...),
		patterns: patternsCount,
		rowIndex: map[time.Duration]int{},
		seen:     map[int]map[string]struct{}{},
	}
	for _, e := range entries {
		if _, ok := b.rowIndex[e.Start]; ok {
			continue
		}
		b.rowIndex[e.Start] = len(b.records)
		b.records = append(b.records, Record{
			Start:        e.Start.Milliseconds(),
			Duration:     e.Duration.Milliseconds(),
			PatternIndex: e.Pattern,
			RowIndex:     e.Row,
			UsedAssets:   []string{},
		})
	}
	return b
}

// RecordUsage notes what one entry consumed. Assets resolved but never
// consumed must not be recorded. Safe for concurrent use.
func (b *Builder) RecordUsage(e timeline.Entry, asset string, substituted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		panic("manifest: RecordUsage after Freeze")
	}
	idx, ok := b.rowIndex[e.Start]
	if !ok {
		return
	}
	if asset != "" && b.markSeen(idx, "a:"+asset) {
		b.records[idx].UsedAssets = append(b.records[idx].UsedAssets, asset)
	}
	if substituted && b.markSeen(idx, "s:"+e.Sample) {
		b.records[idx].Substitutions = append(b.records[idx].Substitutions, e.Sample)
	}
}

// SetOutputs records the finished media file names.
func (b *Builder) SetOutputs(audio, video string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio, b.video = audio, video
}

// AddCopiedClip appends a packaged clip path, deduplicated preserving
// first-use order.
func (b *Builder) AddCopiedClip(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.clips {
		if c == path {
			return
		}
	}
	b.clips = append(b.clips, path)
}

// Freeze finalizes the manifest. Called on success only; the builder
// rejects further mutation afterwards.
func (b *Builder) Freeze() (*Manifest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return nil, fmt.Errorf("manifest already frozen")
	}
	b.frozen = true
	m := &Manifest{
		ModuleTitle:      b.title,
		Audio:            b.audio,
		Video:            b.video,
		CopiedVideoClips: append([]string{}, b.clips...),
		Order:            b.order,
		PatternsCount:    b.patterns,
		Timeline:         make([]Record, len(b.records)),
	}
	copy(m.Timeline, b.records)
	return m, nil
}

func (b *Builder) markSeen(idx int, key string) bool {
	if b.seen[idx] == nil {
		b.seen[idx] = map[string]struct{}{}
	}
	if _, ok := b.seen[idx][key]; ok {
		return false
	}
	b.seen[idx][key] = struct{}{}
	return true
}
