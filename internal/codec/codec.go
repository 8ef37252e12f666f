// Package codec is the narrow image capability the pipeline is built on:
// decode bytes to a raster, resize a raster, encode a raster back to bytes.
// Geometry decisions live in the transform package, not here.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp" // register webp with image.Decode

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format identifies a supported image codec.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	WebP Format = "webp"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// ParseFormat resolves a format name or file extension to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpeg", "jpg":
		return JPEG, true
	case "png":
		return PNG, true
	case "gif":
		return GIF, true
	case "webp":
		return WebP, true
	case "bmp":
		return BMP, true
	case "tiff", "tif":
		return TIFF, true
	}
	return "", false
}

// ParseMIME resolves a content type like "image/jpeg" to a Format.
func ParseMIME(mime string) (Format, bool) {
	mime, _, _ = strings.Cut(strings.ToLower(mime), ";")
	rest, ok := strings.CutPrefix(strings.TrimSpace(mime), "image/")
	if !ok {
		return "", false
	}
	return ParseFormat(rest)
}

// Ext returns the canonical file extension, dot included.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// MIME returns the content type for the format.
func (f Format) MIME() string { return "image/" + string(f) }

// SupportsAlpha reports whether the encoded form can carry an alpha channel.
// Rasters headed for a format without one get flattened first.
func (f Format) SupportsAlpha() bool {
	switch f {
	case JPEG, BMP:
		return false
	}
	return true
}

// Lossy reports whether the quality setting has any effect for the format.
func (f Format) Lossy() bool { return f == JPEG || f == WebP }

// Decode turns encoded bytes into a raster, reporting the detected format.
func Decode(data []byte) (image.Image, Format, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	f, ok := ParseFormat(name)
	if !ok {
		return nil, "", fmt.Errorf("decoded unsupported format %q", name)
	}
	return img, f, nil
}

// Resize scales the raster to exactly w×h with Lanczos resampling.
func Resize(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Crop extracts the given window from the raster.
func Crop(img image.Image, r image.Rectangle) image.Image {
	return imaging.Crop(img, r)
}

// Encode serialises the raster in the given format. Quality is clamped to
// 1-100 and ignored for lossless formats.
func Encode(img image.Image, f Format, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = 95
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case PNG:
		err = png.Encode(&buf, img)
	case GIF:
		err = gif.Encode(&buf, img, nil)
	case WebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)})
	case BMP:
		err = bmp.Encode(&buf, img)
	case TIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("no encoder for format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
