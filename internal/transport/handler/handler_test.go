package handler_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/c0d3rb4b4/image-optimizer/internal/config"
	"github.com/c0d3rb4b4/image-optimizer/internal/pipeline"
	"github.com/c0d3rb4b4/image-optimizer/internal/transport/handler"
	"github.com/c0d3rb4b4/image-optimizer/internal/transport/router"
	"github.com/c0d3rb4b4/image-optimizer/internal/writer"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Target = config.TargetConfig{Width: 64, Height: 36, Quality: 95}
	cfg.Upload = config.UploadConfig{MaxRequestBodyMB: 64, MaxMultipartMemoryMB: 8, MaxImageSizeMB: 10}
	cfg.Storage.OutputDir = t.TempDir()

	w, err := writer.New(cfg.Storage.OutputDir)
	if err != nil {
		t.Fatalf("writer.New: %v", err)
	}
	p := pipeline.New(w, cfg.MaxImageBytes())
	o := pipeline.NewOrchestrator(p, 2, 30*time.Second)

	ts := httptest.NewServer(router.NewRouter(handler.New(o, cfg)))
	t.Cleanup(ts.Close)
	return ts
}

func newJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 60, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var hr handler.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if hr.Status != "healthy" {
		t.Errorf("status = %q, want healthy", hr.Status)
	}
}

func TestOptimizeSingle(t *testing.T) {
	ts := testServer(t)

	body, ct := multipartBody(t, "image", map[string][]byte{"photo.jpg": newJPEG(t, 400, 300)}, nil)
	resp, err := http.Post(ts.URL+"/api/optimize", ct, body)
	if err != nil {
		t.Fatalf("POST /api/optimize: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sr handler.SingleResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sr.Width != 64 || sr.Height != 36 {
		t.Errorf("dims = %dx%d, want 64x36", sr.Width, sr.Height)
	}
	if sr.Key != "photo_optimized.jpg" {
		t.Errorf("key = %q, want photo_optimized.jpg", sr.Key)
	}
}

func TestOptimizeRejectsNonImage(t *testing.T) {
	ts := testServer(t)

	body, ct := multipartBody(t, "image", map[string][]byte{"fake.jpg": []byte("plain text pretending")}, nil)
	resp, err := http.Post(ts.URL+"/api/optimize", ct, body)
	if err != nil {
		t.Fatalf("POST /api/optimize: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
}

func TestOptimizeMissingField(t *testing.T) {
	ts := testServer(t)

	body, ct := multipartBody(t, "wrongfield", map[string][]byte{"a.jpg": newJPEG(t, 50, 50)}, nil)
	resp, err := http.Post(ts.URL+"/api/optimize", ct, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOptimizeRejectsBadOverrides(t *testing.T) {
	ts := testServer(t)

	body, ct := multipartBody(t, "image",
		map[string][]byte{"a.jpg": newJPEG(t, 50, 50)},
		map[string]string{"quality": "300"})
	resp, err := http.Post(ts.URL+"/api/optimize", ct, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOptimizeBatchPartialFailure(t *testing.T) {
	ts := testServer(t)

	corrupt := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("garbage body")...)
	body, ct := multipartBody(t, "images", map[string][]byte{
		"a.jpg": newJPEG(t, 200, 100),
		"b.jpg": corrupt,
	}, nil)

	resp, err := http.Post(ts.URL+"/api/optimize/batch", ct, body)
	if err != nil {
		t.Fatalf("POST /api/optimize/batch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (batch always answers 200)", resp.StatusCode)
	}

	var br handler.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if br.Processed != 1 || br.Failed != 1 {
		t.Errorf("processed=%d failed=%d, want 1/1", br.Processed, br.Failed)
	}
	if len(br.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(br.Results))
	}
}

func TestOptimizeBatchEmpty(t *testing.T) {
	ts := testServer(t)

	body, ct := multipartBody(t, "images", nil, map[string]string{"quality": "90"})
	resp, err := http.Post(ts.URL+"/api/optimize/batch", ct, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing files field", resp.StatusCode)
	}
}
