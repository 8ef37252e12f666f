// Package transform holds the canvas-normalization geometry: cover scaling
// followed by a center crop, so every output has exactly the target
// dimensions without distorting the source aspect ratio.
package transform

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/c0d3rb4b4/image-optimizer/internal/codec"
	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

var errInvalidGeometry = errors.New("invalid geometry")

// geometry is the resolved plan for one transform: the scaled size the source
// is resized to, and the crop window taken out of it.
type geometry struct {
	scaledW, scaledH int
	crop             image.Rectangle
}

// planCover computes cover scaling for a sw×sh source onto a tw×th canvas:
// scale by the larger of the two axis ratios so the scaled image covers the
// canvas on both axes, then crop the centered tw×th window. Rounding may
// leave a scaled axis one pixel short; that axis is bumped to the target so
// the crop always stays in bounds.
func planCover(sw, sh, tw, th int) (geometry, error) {
	if tw <= 0 || th <= 0 {
		return geometry{}, fmt.Errorf("%w: target %dx%d", errInvalidGeometry, tw, th)
	}
	if sw <= 0 || sh <= 0 {
		return geometry{}, fmt.Errorf("%w: source %dx%d", errInvalidGeometry, sw, sh)
	}

	scale := float64(tw) / float64(sw)
	if s := float64(th) / float64(sh); s > scale {
		scale = s
	}

	g := geometry{
		scaledW: int(math.Round(float64(sw) * scale)),
		scaledH: int(math.Round(float64(sh) * scale)),
	}
	if g.scaledW < tw {
		g.scaledW = tw
	}
	if g.scaledH < th {
		g.scaledH = th
	}

	ox := (g.scaledW - tw) / 2
	oy := (g.scaledH - th) / 2
	g.crop = image.Rect(ox, oy, ox+tw, oy+th)
	return g, nil
}

// Apply normalizes src onto the spec's canvas. The returned raster is always
// exactly spec.Width×spec.Height. A source already at target size is copied
// untouched.
func Apply(src image.Image, spec entities.TargetSpec) (image.Image, error) {
	b := src.Bounds()
	g, err := planCover(b.Dx(), b.Dy(), spec.Width, spec.Height)
	if err != nil {
		return nil, err
	}

	if b.Dx() == spec.Width && b.Dy() == spec.Height {
		return imaging.Clone(src), nil
	}

	scaled := codec.Resize(src, g.scaledW, g.scaledH)
	return codec.Crop(scaled, g.crop), nil
}

// Flatten composites the raster over an opaque white background. Used before
// encoding to a format that cannot carry an alpha channel.
func Flatten(src image.Image) image.Image {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Over)
	return out
}

// HasAlpha reports whether any pixel of the raster is not fully opaque.
func HasAlpha(img image.Image) bool {
	if op, ok := img.(interface{ Opaque() bool }); ok {
		return !op.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
