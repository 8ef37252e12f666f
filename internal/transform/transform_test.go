package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func spec(w, h int) entities.TargetSpec {
	return entities.TargetSpec{Width: w, Height: h, Quality: 95}
}

func TestApplyExactTargetDimensions(t *testing.T) {
	cases := []struct {
		name       string
		srcW, srcH int
		tgtW, tgtH int
	}{
		{"wide source", 4000, 1000, 2560, 1440},
		{"tall source", 1000, 4000, 2560, 1440},
		{"upscale small", 300, 200, 2560, 1440},
		{"square to wide", 500, 500, 640, 360},
		{"one pixel rounding", 1333, 1000, 640, 480},
		{"tiny", 1, 1, 16, 9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := Apply(solid(c.srcW, c.srcH, color.White), spec(c.tgtW, c.tgtH))
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if b := out.Bounds(); b.Dx() != c.tgtW || b.Dy() != c.tgtH {
				t.Errorf("output = %dx%d, want %dx%d", b.Dx(), b.Dy(), c.tgtW, c.tgtH)
			}
		})
	}
}

func TestApplyNoOpCopy(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 7), B: 9, A: 255})
		}
	}

	out, err := Apply(src, spec(64, 36))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Fatalf("output = %dx%d, want 64x36", b.Dx(), b.Dy())
	}
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			wr, wg, wb, wa := src.At(x, y).RGBA()
			gr, gg, gb, ga := out.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb || wa != ga {
				t.Fatalf("pixel (%d,%d) changed on no-op path", x, y)
			}
		}
	}
}

// The scale factor must be the minimum one that covers the target on both
// axes, and the crop window must sit fully inside the scaled image.
func TestPlanCoverGeometry(t *testing.T) {
	cases := []struct{ sw, sh, tw, th int }{
		{4000, 1000, 2560, 1440},
		{1000, 4000, 2560, 1440},
		{2560, 1440, 2560, 1440},
		{1920, 1080, 2560, 1440},
		{1333, 1000, 640, 480},
		{3, 7, 2560, 1440},
		{7, 3, 101, 97},
	}
	for _, c := range cases {
		g, err := planCover(c.sw, c.sh, c.tw, c.th)
		if err != nil {
			t.Fatalf("planCover(%d,%d,%d,%d): %v", c.sw, c.sh, c.tw, c.th, err)
		}
		if g.scaledW < c.tw || g.scaledH < c.th {
			t.Errorf("%dx%d -> scaled %dx%d does not cover %dx%d",
				c.sw, c.sh, g.scaledW, g.scaledH, c.tw, c.th)
		}
		if g.crop.Dx() != c.tw || g.crop.Dy() != c.th {
			t.Errorf("crop window %v is not %dx%d", g.crop, c.tw, c.th)
		}
		if g.crop.Min.X < 0 || g.crop.Min.Y < 0 ||
			g.crop.Max.X > g.scaledW || g.crop.Max.Y > g.scaledH {
			t.Errorf("crop %v out of scaled bounds %dx%d", g.crop, g.scaledW, g.scaledH)
		}
		// Centered: margins differ by at most one pixel.
		if left, right := g.crop.Min.X, g.scaledW-g.crop.Max.X; right-left > 1 || left-right > 1 {
			t.Errorf("crop not centered horizontally: margins %d/%d", left, right)
		}
	}
}

func TestApplyInvalidGeometry(t *testing.T) {
	if _, err := Apply(solid(10, 10, color.White), spec(0, 1440)); err == nil {
		t.Error("accepted zero target width")
	}
	if _, err := Apply(solid(10, 10, color.White), spec(2560, -1)); err == nil {
		t.Error("accepted negative target height")
	}
}

func TestFlatten(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{A: 0}) // fully transparent

	if !HasAlpha(src) {
		t.Fatal("HasAlpha missed transparent pixel")
	}

	out := Flatten(src)
	if HasAlpha(out) {
		t.Error("flattened image still has alpha")
	}
	r, g, b, _ := out.At(1, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Errorf("transparent pixel flattened to %v %v %v, want white", r, g, b)
	}
	r, _, _, _ = out.At(0, 0).RGBA()
	if r != 0xffff {
		t.Errorf("opaque red pixel lost its red channel: %v", r)
	}
}
