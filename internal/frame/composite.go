package frame

import (
	"image"
	"sort"
)

// BlendMode selects how a layer's pixels combine with what is already on the
// canvas.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendAdditive BlendMode = "additive"
	BlendMultiply BlendMode = "multiply"
)

// Layer is one stratum of a layered visual: a frame source plus stacking
// order and blending parameters.
type Layer struct {
	Producer Producer
	Z        int
	Opacity  float64
	Blend    BlendMode
}

// CompositeLayers flattens layers into a single producer. Layers are drawn
// in ascending Z order; opacity and blend mode apply as each layer lands on
// the canvas. The result has exactly count frames.
func CompositeLayers(spec Spec, count int, layers []Layer) Producer {
	ordered := make([]Layer, len(layers))
	copy(ordered, layers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Z < ordered[j].Z })

	return Generate(spec, count, func(i int, dst *image.RGBA) error {
		for _, layer := range ordered {
			src := Fit(layer.Producer, count)
			fr, err := src.Frame(i)
			if err != nil {
				return err
			}
			blendOnto(dst, fr, layer.Opacity, layer.Blend)
		}
		return nil
	})
}

func blendOnto(dst, src *image.RGBA, opacity float64, mode BlendMode) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	b := dst.Bounds().Intersect(src.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := dst.RGBAAt(x, y)
			s := src.RGBAAt(x, y)
			var r, g, bl uint32
			switch mode {
			case BlendAdditive:
				r = clamp8(uint32(d.R) + uint32(s.R))
				g = clamp8(uint32(d.G) + uint32(s.G))
				bl = clamp8(uint32(d.B) + uint32(s.B))
			case BlendMultiply:
				r = uint32(d.R) * uint32(s.R) / 255
				g = uint32(d.G) * uint32(s.G) / 255
				bl = uint32(d.B) * uint32(s.B) / 255
			default:
				r = uint32(s.R)
				g = uint32(s.G)
				bl = uint32(s.B)
			}
			d.R = mix8(d.R, uint8(r), opacity)
			d.G = mix8(d.G, uint8(g), opacity)
			d.B = mix8(d.B, uint8(bl), opacity)
			d.A = 0xff
			dst.SetRGBA(x, y, d)
		}
	}
}

func clamp8(v uint32) uint32 {
	if v > 255 {
		return 255
	}
	return v
}

func mix8(under, over uint8, alpha float64) uint8 {
	return uint8(float64(under)*(1-alpha) + float64(over)*alpha + 0.5)
}
