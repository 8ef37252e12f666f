package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/c0d3rb4b4/image-optimizer/internal/config"
	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

const version = "1.0.0"

// Optimizer is the slice of the pipeline the transport layer needs.
type Optimizer interface {
	Process(ctx context.Context, in entities.RawInput, spec entities.TargetSpec) entities.Result
	RunBatch(ctx context.Context, inputs []entities.RawInput, spec entities.TargetSpec) entities.BatchSummary
}

type Handler struct {
	optimizer Optimizer
	cfg       *config.Config
	validator *validator.Validate
}

func New(optimizer Optimizer, cfg *config.Config) *Handler {
	return &Handler{
		optimizer: optimizer,
		cfg:       cfg,
		validator: validator.New(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: version})
}

// Optimize handles a single image: form field "image", optional override
// fields width/height/quality/format/filename.
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	file, fh, err := r.FormFile("image")
	if err != nil {
		if strings.Contains(err.Error(), "no such file") {
			writeJSONError(w, `missing image file: form field key should be "image"`, http.StatusBadRequest)
		} else {
			writeJSONError(w, "an error occurred while uploading the file: "+err.Error(), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	params, ok := h.parseParams(w, r)
	if !ok {
		return
	}

	in, err := readInput(file, fh, params.Filename)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	res := h.optimizer.Process(r.Context(), in, h.targetSpec(params))
	if !res.Success {
		writeJSON(w, statusForKind(res.Kind), APIError{Error: res.Message, Kind: res.Kind})
		return
	}

	writeJSON(w, http.StatusOK, SingleResponse{
		Path:   res.Descriptor.Path,
		Key:    res.Descriptor.Key,
		Width:  res.Descriptor.Width,
		Height: res.Descriptor.Height,
		Size:   res.Descriptor.Size,
	})
}

// OptimizeBatch handles several images under the form field "images".
// The response is always 200 with per-item results in submission order;
// clients read processed/failed for the aggregate.
func (h *Handler) OptimizeBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeJSONError(w, `missing image files: form field key should be "images"`, http.StatusBadRequest)
		return
	}

	params, ok := h.parseParams(w, r)
	if !ok {
		return
	}

	inputs := make([]entities.RawInput, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			writeJSONError(w, "an error occurred while uploading "+fh.Filename+": "+err.Error(), http.StatusBadRequest)
			return
		}
		in, err := readInput(file, fh, "")
		file.Close()
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		inputs = append(inputs, in)
	}

	summary := h.optimizer.RunBatch(r.Context(), inputs, h.targetSpec(params))
	writeJSON(w, http.StatusOK, BatchResponse{
		Processed: summary.Processed,
		Failed:    summary.Failed,
		Results:   summary.Results,
	})
}

func (h *Handler) parseParams(w http.ResponseWriter, r *http.Request) (OptimizeParams, bool) {
	params := OptimizeParams{
		Width:    parseIntDefault(r.Form.Get("width"), 0),
		Height:   parseIntDefault(r.Form.Get("height"), 0),
		Quality:  parseIntDefault(r.Form.Get("quality"), 0),
		Format:   strings.ToLower(r.Form.Get("format")),
		Filename: r.Form.Get("filename"),
	}
	if err := h.validator.Struct(params); err != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorsToMap(err))
		return params, false
	}
	return params, true
}

// targetSpec merges per-request overrides onto the configured defaults.
func (h *Handler) targetSpec(params OptimizeParams) entities.TargetSpec {
	spec := entities.TargetSpec{
		Width:   h.cfg.Target.Width,
		Height:  h.cfg.Target.Height,
		Quality: h.cfg.Target.Quality,
		Format:  h.cfg.Target.Format,
	}
	if params.Width > 0 {
		spec.Width = params.Width
	}
	if params.Height > 0 {
		spec.Height = params.Height
	}
	if params.Quality > 0 {
		spec.Quality = params.Quality
	}
	if params.Format != "" {
		spec.Format = params.Format
	}
	return spec
}

func readInput(file multipart.File, fh *multipart.FileHeader, outputName string) (entities.RawInput, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return entities.RawInput{}, err
	}
	return entities.RawInput{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		OutputName:  outputName,
	}, nil
}
