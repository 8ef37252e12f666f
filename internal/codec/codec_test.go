package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func newPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDetectsFormat(t *testing.T) {
	img, f, err := Decode(newPNG(t, 12, 8))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f != PNG {
		t.Errorf("detected format = %q, want png", f)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Errorf("decoded bounds = %dx%d, want 12x8", b.Dx(), b.Dy())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := Decode([]byte("not an image at all")); err == nil {
		t.Fatal("Decode accepted garbage input")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	src, _, err := Decode(newPNG(t, 20, 10))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	for _, f := range []Format{JPEG, PNG, GIF, WebP, BMP, TIFF} {
		data, err := Encode(src, f, 90)
		if err != nil {
			t.Fatalf("Encode %s: %v", f, err)
		}
		img, got, err := Decode(data)
		if err != nil {
			t.Fatalf("re-decode %s: %v", f, err)
		}
		if got != f {
			t.Errorf("re-decoded %s as %q", f, got)
		}
		if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
			t.Errorf("%s round trip bounds = %dx%d, want 20x10", f, b.Dx(), b.Dy())
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"jpg", JPEG, true},
		{".jpeg", JPEG, true},
		{"PNG", PNG, true},
		{".tif", TIFF, true},
		{"webp", WebP, true},
		{"svg", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseFormat(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseMIME(t *testing.T) {
	if f, ok := ParseMIME("image/jpeg; charset=binary"); !ok || f != JPEG {
		t.Errorf("ParseMIME(image/jpeg) = %q, %v", f, ok)
	}
	if _, ok := ParseMIME("text/plain"); ok {
		t.Error("ParseMIME accepted text/plain")
	}
}

func TestFormatProperties(t *testing.T) {
	if JPEG.SupportsAlpha() || BMP.SupportsAlpha() {
		t.Error("jpeg/bmp must not report alpha support")
	}
	if !PNG.SupportsAlpha() || !WebP.SupportsAlpha() {
		t.Error("png/webp must report alpha support")
	}
	if !JPEG.Lossy() || PNG.Lossy() {
		t.Error("lossy classification wrong")
	}
	if JPEG.Ext() != ".jpg" || TIFF.Ext() != ".tiff" {
		t.Errorf("unexpected extensions: %s %s", JPEG.Ext(), TIFF.Ext())
	}
}
