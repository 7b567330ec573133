// Package jobfile loads declarative render-job documents. A job file is one
// HCL document with a single job block; plugin blocks inside it carry free
// attributes that become the plugin's configuration.
package jobfile

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/plugin"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot decodes the top-level structure of a job file.
type fileRoot struct {
	Jobs   []*jobBlock `hcl:"job,block"`
	Remain hcl.Body    `hcl:",remain"`
}

type jobBlock struct {
	Name string `hcl:"name,label"`

	ModulePath string `hcl:"module"`
	Backend    string `hcl:"backend,optional"`
	OutputDir  string `hcl:"output,optional"`

	Seed       *int64 `hcl:"seed,optional"`
	SampleRate *int   `hcl:"sample_rate,optional"`
	MaxLayers  *int   `hcl:"max_layers,optional"`
	Workers    *int   `hcl:"workers,optional"`
	LookAhead  *int   `hcl:"look_ahead,optional"`
	PreviewMS  *int64 `hcl:"preview_ms,optional"`

	NoSilenceFallback bool `hcl:"no_silence_fallback,optional"`

	Frame   *frameBlock    `hcl:"frame,block"`
	Plugins []*pluginBlock `hcl:"plugin,block"`
}

type frameBlock struct {
	Width  int `hcl:"width"`
	Height int `hcl:"height"`
	FPS    int `hcl:"fps"`
}

// pluginBlock keeps its body undecoded; every attribute inside it belongs to
// the plugin's own configuration.
type pluginBlock struct {
	Name   string   `hcl:"name,label"`
	Config hcl.Body `hcl:",remain"`
}

// FrameSettings carries the declared output geometry.
type FrameSettings struct {
	Width  int
	Height int
	FPS    int
}

// PluginDecl is one declared plugin with its raw configuration, in document
// order.
type PluginDecl struct {
	Name   string
	Config plugin.Config
}

// Document is the format-agnostic result of loading one job file.
type Document struct {
	Name       string
	ModulePath string
	Backend    string
	OutputDir  string

	Seed       int64
	SampleRate int
	MaxLayers  int
	Workers    int
	LookAhead  int
	Preview    time.Duration

	NoSilenceFallback bool

	Frame   *FrameSettings
	Plugins []PluginDecl
}

// Load parses one job file into a Document. Exactly one job block is
// required per file.
func Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Job file loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode job file %s: %w", path, diags)
	}
	if len(root.Jobs) != 1 {
		return nil, fmt.Errorf("job file %s: expected exactly one job block, found %d", path, len(root.Jobs))
	}

	doc, err := translateJob(root.Jobs[0])
	if err != nil {
		return nil, fmt.Errorf("job file %s: %w", path, err)
	}
	logger.Debug("Job file loaded.", "job", doc.Name, "plugins", len(doc.Plugins))
	return doc, nil
}

func translateJob(jb *jobBlock) (*Document, error) {
	doc := &Document{
		Name:              jb.Name,
		ModulePath:        jb.ModulePath,
		Backend:           jb.Backend,
		OutputDir:         jb.OutputDir,
		NoSilenceFallback: jb.NoSilenceFallback,
	}
	if jb.Seed != nil {
		doc.Seed = *jb.Seed
	}
	if jb.SampleRate != nil {
		doc.SampleRate = *jb.SampleRate
	}
	if jb.MaxLayers != nil {
		doc.MaxLayers = *jb.MaxLayers
	}
	if jb.Workers != nil {
		doc.Workers = *jb.Workers
	}
	if jb.LookAhead != nil {
		doc.LookAhead = *jb.LookAhead
	}
	if jb.PreviewMS != nil {
		doc.Preview = time.Duration(*jb.PreviewMS) * time.Millisecond
	}
	if jb.Frame != nil {
		doc.Frame = &FrameSettings{Width: jb.Frame.Width, Height: jb.Frame.Height, FPS: jb.Frame.FPS}
	}

	for _, pb := range jb.Plugins {
		cfg, err := extractBodyAttributes(pb.Config)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", pb.Name, err)
		}
		doc.Plugins = append(doc.Plugins, PluginDecl{Name: pb.Name, Config: cfg})
	}
	return doc, nil
}

// extractBodyAttributes evaluates every attribute of a plugin body into the
// plugin's primitive configuration values.
func extractBodyAttributes(body hcl.Body) (plugin.Config, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid plugin attributes: %w", diags)
	}
	cfg := plugin.Config{}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %w", name, diags)
		}
		gov, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		cfg[name] = gov
	}
	return cfg, nil
}

// ctyToGo narrows an HCL value to the primitive types plugin configs accept.
// Whole numbers come out as int so integer-valued settings round-trip.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, fmt.Errorf("null values are not allowed")
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Bool:
		return val.True(), nil
	case cty.Number:
		bf := val.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return int(i), nil
		}
		f, _ := bf.Float64()
		return f, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", val.Type().FriendlyName())
}

// Instantiate turns the document's plugin declarations into validated specs,
// split by capability for the two chains. Declaration order is preserved
// within each chain.
func (d *Document) Instantiate(reg *plugin.Registry) (audioSpecs, visualSpecs []plugin.Spec, err error) {
	for _, decl := range d.Plugins {
		spec, err := reg.New(decl.Name, decl.Config)
		if err != nil {
			return nil, nil, err
		}
		switch spec.Capability {
		case plugin.CapabilityAudio, plugin.CapabilityAudioEffect:
			audioSpecs = append(audioSpecs, spec)
		default:
			visualSpecs = append(visualSpecs, spec)
		}
	}
	return audioSpecs, visualSpecs, nil
}
