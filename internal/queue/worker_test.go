package queue

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/c0d3rb4b4/image-optimizer/internal/codec"
	"github.com/c0d3rb4b4/image-optimizer/internal/config"
)

type recordedKey struct{ key, webpKey string }

type fakeRecorder struct{ calls []recordedKey }

func (r *fakeRecorder) SetWebPKey(_ context.Context, key, webpKey string) error {
	r.calls = append(r.calls, recordedKey{key, webpKey})
	return nil
}

func storePNG(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 200, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func TestProcessWritesVariant(t *testing.T) {
	dir := t.TempDir()
	storePNG(t, dir, "img.png")

	rec := &fakeRecorder{}
	w := &Worker{
		cfg:       config.WebPWorkerConfig{Quality: 80},
		outputDir: dir,
		recorder:  rec,
	}

	if err := w.process(context.Background(), VariantJob{Key: "img.png"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "img.png.webp"))
	if err != nil {
		t.Fatalf("variant missing: %v", err)
	}
	if _, f, err := codec.Decode(data); err != nil || f != codec.WebP {
		t.Fatalf("variant is not webp: format=%s err=%v", f, err)
	}

	if len(rec.calls) != 1 || rec.calls[0] != (recordedKey{"img.png", "img.png.webp"}) {
		t.Errorf("recorder calls = %+v", rec.calls)
	}
}

func TestProcessRejectsPathTraversal(t *testing.T) {
	w := &Worker{cfg: config.WebPWorkerConfig{Quality: 80}, outputDir: t.TempDir()}
	if err := w.process(context.Background(), VariantJob{Key: "../escape.png"}); err == nil {
		t.Fatal("accepted key with path separator")
	}
	if err := w.process(context.Background(), VariantJob{Key: ""}); err == nil {
		t.Fatal("accepted empty key")
	}
}

func TestProcessMissingSource(t *testing.T) {
	w := &Worker{cfg: config.WebPWorkerConfig{Quality: 80}, outputDir: t.TempDir()}
	if err := w.process(context.Background(), VariantJob{Key: "gone.png"}); err == nil {
		t.Fatal("processed a job whose source file is gone")
	}
}
